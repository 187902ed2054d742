package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techpost/internal/domain"
	"techpost/internal/strategy"
)

var gateNow = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)

type fakePosts struct {
	latest      map[string]*domain.PostRecord
	after       map[string][]domain.PostRecord
	latestErr   error
	afterErr    error
	afterCutoff time.Time
}

func (f *fakePosts) LatestPost(_ context.Context, articleID string) (*domain.PostRecord, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest[articleID], nil
}

func (f *fakePosts) PostsAfter(_ context.Context, articleID string, after time.Time) ([]domain.PostRecord, error) {
	if f.afterErr != nil {
		return nil, f.afterErr
	}
	f.afterCutoff = after
	var recent []domain.PostRecord
	for _, p := range f.after[articleID] {
		if p.PostedAt.After(after) {
			recent = append(recent, p)
		}
	}
	return recent, nil
}

func (f *fakePosts) SavePost(context.Context, domain.PostRecord) error       { return nil }
func (f *fakePosts) SaveTokenUsage(context.Context, domain.TokenUsage) error { return nil }
func (f *fakePosts) LogExecution(context.Context, domain.ExecutionLog) error { return nil }
func (f *fakePosts) PostsSince(context.Context, time.Time) ([]domain.PostRecord, error) {
	return nil, nil
}
func (f *fakePosts) UpdateEngagement(context.Context, string, int, int) error { return nil }
func (f *fakePosts) Stats(context.Context) (domain.Stats, error)              { return domain.Stats{}, nil }

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeIndex struct {
	matches []domain.SimilarityMatch
	err     error
}

func (f *fakeIndex) Insert(context.Context, string, []float32, domain.EmbeddingMetadata) error {
	return nil
}

func (f *fakeIndex) QueryNearest(context.Context, []float32, int) ([]domain.SimilarityMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func allowRepost() strategy.PostingStrategy {
	return strategy.PostingStrategy{AllowRepost: true}
}

func TestCheckNeverPostedIsEligible(t *testing.T) {
	t.Parallel()

	gate := NewGate(&fakePosts{}, nil, nil, 0, 0, nil)

	res, err := gate.Check(context.Background(), domain.Article{ID: "fresh"}, allowRepost(), gateNow)
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, ReasonNeverPosted, res.Reason)
}

func TestCheckRepostDisallowed(t *testing.T) {
	t.Parallel()

	posts := &fakePosts{latest: map[string]*domain.PostRecord{
		"a1": {ArticleID: "a1", PostedAt: gateNow.AddDate(0, 0, -30)},
	}}
	gate := NewGate(posts, nil, nil, 0, 0, nil)

	res, err := gate.Check(context.Background(), domain.Article{ID: "a1"},
		strategy.PostingStrategy{AllowRepost: false}, gateNow)
	require.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonRepostDisallowed, res.Reason, "even a month-old post blocks when the strategy forbids reposts")
}

func TestCheckRepostCooldown(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		postedAt time.Time
		eligible bool
		reason   Reason
	}{
		{"two days ago", gateNow.AddDate(0, 0, -2), false, ReasonWithinCooldown},
		{"eight days ago", gateNow.AddDate(0, 0, -8), true, ReasonCooldownElapsed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			posts := &fakePosts{latest: map[string]*domain.PostRecord{
				"a1": {ArticleID: "a1", PostedAt: tc.postedAt},
			}}
			gate := NewGate(posts, nil, nil, 0, 0, nil)

			res, err := gate.Check(context.Background(), domain.Article{ID: "a1"}, allowRepost(), gateNow)
			require.NoError(t, err)
			assert.Equal(t, tc.eligible, res.Eligible)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestCheckRepositoryErrorAborts(t *testing.T) {
	t.Parallel()

	gate := NewGate(&fakePosts{latestErr: errors.New("db down")}, nil, nil, 0, 0, nil)

	_, err := gate.Check(context.Background(), domain.Article{ID: "a1"}, allowRepost(), gateNow)
	assert.ErrorContains(t, err, "db down")
}

func TestCheckNearDuplicateBlocks(t *testing.T) {
	t.Parallel()

	posts := &fakePosts{after: map[string][]domain.PostRecord{
		"twin": {{ArticleID: "twin", PostedAt: gateNow.AddDate(0, 0, -1)}},
	}}
	index := &fakeIndex{matches: []domain.SimilarityMatch{
		{ArticleID: "twin", Similarity: 0.97},
		{ArticleID: "cousin", Similarity: 0.4},
	}}
	gate := NewGate(posts, &fakeEmbedder{vector: []float32{1, 0}}, index, 0, 0, nil)

	res, err := gate.Check(context.Background(), domain.Article{ID: "a1", Title: "Same story"}, allowRepost(), gateNow)
	require.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonNearDuplicate, res.Reason)
	assert.Equal(t, "twin", res.SimilarID)
	assert.InDelta(t, 0.97, res.Similarity, 1e-9)
	assert.True(t, Identical(res.Similarity))
}

func TestCheckSimilarButOldPostIsEligible(t *testing.T) {
	t.Parallel()

	posts := &fakePosts{after: map[string][]domain.PostRecord{
		"twin": {{ArticleID: "twin", PostedAt: gateNow.AddDate(0, 0, -10)}},
	}}
	index := &fakeIndex{matches: []domain.SimilarityMatch{{ArticleID: "twin", Similarity: 0.85}}}
	gate := NewGate(posts, &fakeEmbedder{vector: []float32{1, 0}}, index, 0, 0, nil)

	res, err := gate.Check(context.Background(), domain.Article{ID: "a1"}, allowRepost(), gateNow)
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, ReasonNeverPosted, res.Reason)
	assert.Equal(t, gateNow.AddDate(0, 0, -3), posts.afterCutoff, "similar-post lookback is 3 days")
}

func TestCheckFailsOpenOnEmbedderError(t *testing.T) {
	t.Parallel()

	gate := NewGate(&fakePosts{}, &fakeEmbedder{err: errors.New("embedder down")}, &fakeIndex{}, 0, 0, nil)

	res, err := gate.Check(context.Background(), domain.Article{ID: "a1"}, allowRepost(), gateNow)
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, ReasonIndexUnavailable, res.Reason)
}

func TestCheckFailsOpenOnIndexError(t *testing.T) {
	t.Parallel()

	gate := NewGate(&fakePosts{}, &fakeEmbedder{vector: []float32{1}}, &fakeIndex{err: errors.New("index down")}, 0, 0, nil)

	res, err := gate.Check(context.Background(), domain.Article{ID: "a1"}, allowRepost(), gateNow)
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, ReasonIndexUnavailable, res.Reason)
}

func TestEmbeddingText(t *testing.T) {
	t.Parallel()

	a := domain.Article{
		Title: "Profiling Go services",
		Tags:  []domain.Tag{{Name: "Go"}, {Name: "Performance"}},
	}
	assert.Equal(t, "Profiling Go services Go Performance", EmbeddingText(a))
}
