package ports

import (
	"context"
	"time"

	"techpost/internal/domain"
)

// ArticleSource pulls fresh articles from the upstream platform. A failing
// author contributes zero articles instead of failing the whole fetch.
type ArticleSource interface {
	FetchByAuthors(ctx context.Context, authorIDs []string) ([]domain.Article, error)
}

// PostRepository persists the posting history, the token ledger, and the
// execution log.
type PostRepository interface {
	// LatestPost returns the most recent publish of the article id, or nil
	// when the article has never been posted.
	LatestPost(ctx context.Context, articleID string) (*domain.PostRecord, error)
	// PostsAfter returns publishes of the article id newer than the cutoff.
	PostsAfter(ctx context.Context, articleID string, after time.Time) ([]domain.PostRecord, error)
	SavePost(ctx context.Context, post domain.PostRecord) error
	SaveTokenUsage(ctx context.Context, usage domain.TokenUsage) error
	LogExecution(ctx context.Context, entry domain.ExecutionLog) error
	// PostsSince lists publishes after the cutoff regardless of article,
	// newest first. Used by the metrics refresher.
	PostsSince(ctx context.Context, since time.Time) ([]domain.PostRecord, error)
	UpdateEngagement(ctx context.Context, tweetID string, impressions, engagements int) error
	Stats(ctx context.Context) (domain.Stats, error)
}

// Embedder turns text into a semantic vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores article embeddings and answers nearest-neighbor
// queries in cosine-similarity space.
type VectorIndex interface {
	Insert(ctx context.Context, articleID string, vector []float32, meta domain.EmbeddingMetadata) error
	QueryNearest(ctx context.Context, vector []float32, topK int) ([]domain.SimilarityMatch, error)
}

// ChatModel executes one generative completion against a model identifier.
type ChatModel interface {
	Complete(ctx context.Context, prompt, model string, maxTokens int, temperature float64) (domain.Completion, error)
}

// Publisher posts to the social feed and reads back public metrics.
// Request signing is the implementation's concern.
type Publisher interface {
	PostTweet(ctx context.Context, text string) (string, error)
	TweetMetrics(ctx context.Context, tweetIDs []string) ([]domain.TweetMetrics, error)
}

// Notifier pushes run outcomes to an external channel. Failures are
// surfaced but callers treat delivery as best-effort.
type Notifier interface {
	NotifyPostSuccess(ctx context.Context, title, url, tweetID string, score float64) error
	NotifyError(ctx context.Context, message string) error
}

// WatermarkStore holds the timestamp of the last successful run. Get
// returns the zero time when no watermark has been written yet.
type WatermarkStore interface {
	Get(ctx context.Context) (time.Time, error)
	Set(ctx context.Context, t time.Time) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
