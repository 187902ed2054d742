package domain

import "time"

// Tag is a single topic label attached to an article.
type Tag struct {
	Name     string
	Versions []string
}

// Author identifies the writer of an article on the upstream platform.
type Author struct {
	ID             string
	Name           string
	ItemsCount     int
	FollowersCount int
}

// Article is a core entity describing a technical article fetched from the
// upstream platform. Immutable once fetched.
type Article struct {
	ID        string
	Title     string
	URL       string
	Body      string
	Likes     int
	Stocks    int
	Comments  int
	Tags      []Tag
	Author    Author
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagNames returns the plain tag names in declaration order.
func (a Article) TagNames() []string {
	names := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		names[i] = t.Name
	}
	return names
}

// ScoredArticle pairs an article with its heuristic meta score.
type ScoredArticle struct {
	Article
	MetaScore int
}

// Evaluation is the model's judgment of a single article.
type Evaluation struct {
	ArticleID   string
	TotalScore  float64
	Recommended bool
	Reasoning   string
}

// BatchEvaluationResult groups the evaluations of one batch model call
// together with its token accounting.
type BatchEvaluationResult struct {
	Evaluations []Evaluation
	TotalTokens int
	ModelUsed   string
}

// TweetContent is the generated post body. Text excludes the article URL
// and hashtags; the orchestrator appends both.
type TweetContent struct {
	Text                string
	Hashtags            []string
	EstimatedEngagement float64
}

// Usage carries per-call token counts reported by the model API.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count of the call.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Completion is the raw result of one generative model call.
type Completion struct {
	Text  string
	Usage Usage
}

// SuccessExample is a prior high-performing post used for few-shot
// conditioning of the content generator.
type SuccessExample struct {
	ArticleTitle   string
	TweetText      string
	EngagementRate float64
}
