// Package scoring implements the heuristic meta score used to gate paid
// model calls, plus the score-driven model tier selection.
package scoring

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"techpost/internal/domain"
)

// MaxMetaScore is the ceiling of the heuristic score.
const MaxMetaScore = 45

// premiumTags is the fixed allow-list of high-value topics. Matching is
// case-insensitive; each match is worth 2 points, capped at 5.
var premiumTags = []string{
	"TypeScript", "React", "AWS", "Python", "Next.js",
	"Claude", "AI", "OpenAI", "LLM", "MachineLearning",
	"Docker", "Kubernetes", "Go", "Rust", "Vue.js",
}

var (
	headingRe = regexp.MustCompile(`(?m)^#+\s`)
)

// MetaScore computes the heuristic quality score of an article in [0,45].
// It is deterministic for a fixed now, needs no I/O, and never fails;
// malformed counters contribute zero.
func MetaScore(a domain.Article, now time.Time) int {
	score := 0

	score += capInt(10, nonNegative(a.Likes)/5)
	score += capInt(10, nonNegative(a.Stocks)/3)
	score += freshnessTerm(a.UpdatedAt, now)
	score += tagTerm(a.Tags)
	score += capInt(5, nonNegative(a.Comments)/2)
	score += completenessTerm(a.Body)

	return score
}

func freshnessTerm(updatedAt, now time.Time) int {
	days := now.Sub(updatedAt).Hours() / 24
	switch {
	case days < 7:
		return 10
	case days < 30:
		return 7
	case days < 90:
		return 5
	case days < 365:
		return 3
	default:
		return 1
	}
}

func tagTerm(tags []domain.Tag) int {
	matches := 0
	for _, tag := range tags {
		for _, premium := range premiumTags {
			if strings.EqualFold(premium, tag.Name) {
				matches++
				break
			}
		}
	}
	return capInt(5, matches*2)
}

func completenessTerm(body string) int {
	score := 0

	length := len([]rune(body))
	if length >= 3000 {
		score += 2
	} else if length >= 1500 {
		score += 1
	}

	codeBlocks := strings.Count(body, "```") / 2
	if codeBlocks >= 2 {
		score += 2
	} else if codeBlocks >= 1 {
		score += 1
	}

	if len(headingRe.FindAllStringIndex(body, -1)) >= 3 {
		score += 1
	}

	return score
}

// FilterByMetaScore scores every article, keeps those at or above the
// threshold, and returns them sorted by meta score descending. The sort is
// stable, so filtering an already-filtered set is a no-op.
func FilterByMetaScore(articles []domain.Article, threshold int, now time.Time) []domain.ScoredArticle {
	scored := make([]domain.ScoredArticle, 0, len(articles))
	for _, a := range articles {
		s := MetaScore(a, now)
		if s >= threshold {
			scored = append(scored, domain.ScoredArticle{Article: a, MetaScore: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MetaScore > scored[j].MetaScore
	})

	return scored
}

func capInt(limit, v int) int {
	if v > limit {
		return limit
	}
	return v
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
