package domain

import "time"

// PostRecord is the persisted row capturing one successful publish.
// Engagement fields are backfilled later by the metrics refresher.
type PostRecord struct {
	ID           int64
	ArticleID    string
	ArticleTitle string
	ArticleURL   string
	AuthorID     string
	TweetID      string
	TweetText    string
	Hashtags     []string
	Score        float64
	MetaScore    int
	AIModel      string
	PostedAt     time.Time
	Impressions  int
	Engagements  int
}

// Operation distinguishes the two kinds of paid model calls in the ledger.
type Operation string

const (
	OperationEvaluation Operation = "evaluation"
	OperationGeneration Operation = "generation"
)

// TokenUsage is one append-only ledger entry for a model call.
type TokenUsage struct {
	ArticleID    string
	Operation    Operation
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	CreatedAt    time.Time
}

// ExecutionStatus marks an execution-log entry as a success or an error.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionError   ExecutionStatus = "error"
)

// ExecutionLog records the outcome of one pipeline or refresher run.
type ExecutionLog struct {
	RunID             string
	Type              string
	Status            ExecutionStatus
	Message           string
	ArticlesProcessed int
	ArticlesPosted    int
	TotalCostUSD      float64
	CreatedAt         time.Time
}

// TweetMetrics is the public engagement snapshot of one published tweet.
type TweetMetrics struct {
	TweetID        string
	Impressions    int
	Engagements    int
	EngagementRate float64
}

// Stats aggregates the posting history for reporting.
type Stats struct {
	TotalPosts        int
	TotalCostUSD      float64
	AvgEngagementRate float64
}

// SimilarityMatch is one nearest-neighbor hit from the semantic index.
type SimilarityMatch struct {
	ArticleID  string
	Similarity float64
}

// EmbeddingMetadata is stored alongside an article embedding.
type EmbeddingMetadata struct {
	Title     string
	URL       string
	CreatedAt time.Time
}
