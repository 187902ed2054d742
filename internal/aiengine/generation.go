package aiengine

// The generation prompt and parseTweetContent form the second
// structured-response contract; keep the requested JSON shape and the
// validator in sync.

import (
	"encoding/json"
	"fmt"
	"strings"

	"techpost/internal/domain"
)

func buildGenerationPrompt(a domain.Article, score float64, optimized string) string {
	return fmt.Sprintf(`Write a social media post for the following technical article.

Article title: %s
Article URL: %s
Evaluation score: %.0f

Article content:
%s

Requirements:
1. Convey the core value of the article
2. Catch the interest of software engineers
3. At most 280 characters (excluding URL and hashtags)
4. Use emoji sparingly (0-2)
5. Concrete numbers and examples work well

Reply in this JSON format:
`+"```json"+`
{
  "text": "the post text (no URL, no hashtags)",
  "hashtags": ["TechBlog", "RelatedTag1", "RelatedTag2"],
  "estimated_engagement": 75
}
`+"```", a.Title, a.URL, score, optimized)
}

func buildFewShotPrompt(a domain.Article, score float64, optimized string, examples []domain.SuccessExample) string {
	var ex strings.Builder
	for i, e := range examples {
		fmt.Fprintf(&ex, "Example %d:\nArticle: %s\nPost: %s\nEngagement rate: %.1f%%\n\n",
			i+1, e.ArticleTitle, e.TweetText, e.EngagementRate)
	}

	return fmt.Sprintf(`Using the past successes below as a guide, write a social media post for this technical article.

[Past successes]
%s[This article]
Title: %s
URL: %s
Evaluation score: %.0f

Article content:
%s

Requirements:
1. Follow the style of the successful examples
2. At most 280 characters (excluding URL and hashtags)
3. Catch the interest of software engineers

`+"```json"+`
{
  "text": "the post text",
  "hashtags": ["TechBlog", "RelatedTag1"],
  "estimated_engagement": 80
}
`+"```", ex.String(), a.Title, a.URL, score, optimized)
}

type rawTweetContent struct {
	Text                *string   `json:"text"`
	Hashtags            *[]string `json:"hashtags"`
	EstimatedEngagement *float64  `json:"estimated_engagement"`
}

func parseTweetContent(payload string) (domain.TweetContent, error) {
	var raw rawTweetContent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return domain.TweetContent{}, fmt.Errorf("decode tweet content: %w", err)
	}

	if raw.Text == nil || raw.Hashtags == nil || raw.EstimatedEngagement == nil {
		return domain.TweetContent{}, fmt.Errorf("tweet content is missing required fields")
	}

	return domain.TweetContent{
		Text:                *raw.Text,
		Hashtags:            *raw.Hashtags,
		EstimatedEngagement: *raw.EstimatedEngagement,
	}, nil
}
