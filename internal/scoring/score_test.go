package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techpost/internal/domain"
)

var scoreNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func richArticle() domain.Article {
	body := strings.Repeat("a", 3000) +
		"\n# One\n# Two\n# Three\n```go\nx\n```\n```go\ny\n```\n"
	return domain.Article{
		ID:        "rich",
		Title:     "Rich",
		Likes:     500,
		Stocks:    300,
		Comments:  40,
		Body:      body,
		Tags:      []domain.Tag{{Name: "Go"}, {Name: "Docker"}, {Name: "Rust"}},
		UpdatedAt: scoreNow.Add(-24 * time.Hour),
	}
}

func TestMetaScoreBounds(t *testing.T) {
	t.Parallel()

	empty := domain.Article{UpdatedAt: scoreNow.AddDate(-3, 0, 0)}
	assert.Equal(t, 1, MetaScore(empty, scoreNow), "ancient empty article keeps only the freshness floor")

	assert.Equal(t, MaxMetaScore, MetaScore(richArticle(), scoreNow))
}

func TestMetaScoreNegativeCountersContributeZero(t *testing.T) {
	t.Parallel()

	a := domain.Article{
		Likes:     -10,
		Stocks:    -3,
		Comments:  -1,
		UpdatedAt: scoreNow.Add(-time.Hour),
	}
	assert.Equal(t, 10, MetaScore(a, scoreNow))
}

func TestMetaScoreFreshness(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"six days", 6 * 24 * time.Hour, 10},
		{"two weeks", 14 * 24 * time.Hour, 7},
		{"two months", 60 * 24 * time.Hour, 5},
		{"half year", 180 * 24 * time.Hour, 3},
		{"two years", 730 * 24 * time.Hour, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := domain.Article{UpdatedAt: scoreNow.Add(-tc.age)}
			assert.Equal(t, tc.want, MetaScore(a, scoreNow))
		})
	}
}

func TestMetaScoreTagTermCapped(t *testing.T) {
	t.Parallel()

	base := domain.Article{UpdatedAt: scoreNow.Add(-time.Hour)}

	two := base
	two.Tags = []domain.Tag{{Name: "go"}, {Name: "REACT"}}
	assert.Equal(t, 14, MetaScore(two, scoreNow), "matching is case-insensitive, 2 points each")

	four := base
	four.Tags = []domain.Tag{{Name: "Go"}, {Name: "React"}, {Name: "AWS"}, {Name: "Python"}}
	assert.Equal(t, 15, MetaScore(four, scoreNow), "tag term is capped at 5")
}

func TestMetaScoreMonotonicInLikes(t *testing.T) {
	t.Parallel()

	a := domain.Article{UpdatedAt: scoreNow.Add(-time.Hour)}
	prev := MetaScore(a, scoreNow)
	for likes := 0; likes <= 100; likes += 5 {
		a.Likes = likes
		s := MetaScore(a, scoreNow)
		require.GreaterOrEqual(t, s, prev)
		prev = s
	}
}

func TestFilterByMetaScoreSortsDescending(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{ID: "low", UpdatedAt: scoreNow.AddDate(-3, 0, 0)},
		richArticle(),
		{ID: "mid", Likes: 100, Stocks: 90, UpdatedAt: scoreNow.Add(-time.Hour)},
	}

	scored := FilterByMetaScore(articles, 10, scoreNow)
	require.Len(t, scored, 2, "the ancient article falls below the threshold")
	assert.Equal(t, "rich", scored[0].ID)
	assert.Equal(t, "mid", scored[1].ID)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].MetaScore, scored[i].MetaScore)
	}
}

func TestFilterByMetaScoreIdempotent(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		richArticle(),
		{ID: "mid", Likes: 100, Stocks: 90, UpdatedAt: scoreNow.Add(-time.Hour)},
	}

	once := FilterByMetaScore(articles, 10, scoreNow)

	again := make([]domain.Article, 0, len(once))
	for _, s := range once {
		again = append(again, s.Article)
	}
	twice := FilterByMetaScore(again, 10, scoreNow)

	assert.Equal(t, once, twice)
}

func TestSelectModelTierBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  ModelTier
	}{
		{0, TierSkip},
		{19, TierSkip},
		{20, TierCheap},
		{34, TierCheap},
		{35, TierPremium},
		{45, TierPremium},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SelectModelTier(tc.score), "score %d", tc.score)
	}
}

func TestGenerationTier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TierCheap, GenerationTier(34.9))
	assert.Equal(t, TierPremium, GenerationTier(35))
	assert.Equal(t, TierPremium, GenerationTier(42.5))
}
