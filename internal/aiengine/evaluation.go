package aiengine

// The evaluation prompt and its response parser form one contract: the
// fenced-JSON shape requested below must stay in sync with the validation
// in parseEvaluations. Review changes to either together.

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"techpost/internal/domain"
)

var (
	// ErrNoContent signals a model response with no extractable text.
	ErrNoContent = errors.New("model response contained no content")
	// ErrNoStructuredBlock signals a response without a fenced json block.
	ErrNoStructuredBlock = errors.New("model response contained no json block")
)

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*\n(.+?)\n```")

// extractJSONBlock returns the payload of the first fenced json block in
// the response. When several blocks appear, the first is authoritative.
func extractJSONBlock(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoContent
	}
	m := jsonBlockRe.FindStringSubmatch(text)
	if m == nil {
		return "", ErrNoStructuredBlock
	}
	return m[1], nil
}

func buildEvaluationPrompt(compressed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate the following %d technical articles.\n\n", len(compressed))
	for i, c := range compressed {
		fmt.Fprintf(&b, "## Article %d\n%s\n\n", i+1, c)
	}
	b.WriteString(`Score each article on these criteria and reply with a JSON array:
1. Technical value (novelty, practicality, what readers learn)
2. Content quality (structure, clarity of explanations)
3. Share value on social media (impact, topicality)

Scoring guide:
- 40+: excellent article, must be posted
- 30-39: good article, worth posting
- 20-29: average article, depends on circumstances
- below 20: not worth posting

` + "```json" + `
[
  {
    "article_id": "the article id",
    "total_score": 35,
    "recommended": true,
    "reasoning": "concise rationale, 50 characters or fewer"
  }
]
` + "```")
	return b.String()
}

type rawEvaluation struct {
	ArticleID   *string  `json:"article_id"`
	TotalScore  *float64 `json:"total_score"`
	Recommended *bool    `json:"recommended"`
	Reasoning   *string  `json:"reasoning"`
}

// parseEvaluations validates the structured payload of a batch evaluation
// response. Every entry must carry all four fields, and the article ids
// must be a subset of the submitted ids; violations are validation errors,
// never silently dropped.
func parseEvaluations(payload string, submitted map[string]struct{}) ([]domain.Evaluation, error) {
	var raws []rawEvaluation
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return nil, fmt.Errorf("decode evaluations: %w", err)
	}

	if len(raws) > len(submitted) {
		return nil, fmt.Errorf("evaluation count %d exceeds submitted article count %d", len(raws), len(submitted))
	}

	evaluations := make([]domain.Evaluation, 0, len(raws))
	for i, r := range raws {
		if r.ArticleID == nil || r.TotalScore == nil || r.Recommended == nil || r.Reasoning == nil {
			return nil, fmt.Errorf("evaluation %d is missing required fields", i)
		}
		if _, ok := submitted[*r.ArticleID]; !ok {
			return nil, fmt.Errorf("evaluation %d references unknown article %q", i, *r.ArticleID)
		}
		evaluations = append(evaluations, domain.Evaluation{
			ArticleID:   *r.ArticleID,
			TotalScore:  *r.TotalScore,
			Recommended: *r.Recommended,
			Reasoning:   *r.Reasoning,
		})
	}

	return evaluations, nil
}
