package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"techpost/internal/domain"
	"techpost/internal/ports"
)

const (
	executionTypeMetrics = "metrics_update"
	metricsLookbackDays  = 7
)

// MetricsRefresher backfills engagement metrics for recently published
// posts. It owns the only update-in-place of post rows besides the
// watermark.
type MetricsRefresher struct {
	repository ports.PostRepository
	publisher  ports.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewMetricsRefresher wires the repository and publish-target metrics API.
func NewMetricsRefresher(repository ports.PostRepository, publisher ports.Publisher, logger *slog.Logger) *MetricsRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsRefresher{
		repository: repository,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Run refreshes metrics for posts of the last seven days and writes an
// execution-log entry with the outcome.
func (m *MetricsRefresher) Run(ctx context.Context) (int, error) {
	runID := uuid.NewString()

	updated, err := m.refresh(ctx)
	status, message := domain.ExecutionSuccess, fmt.Sprintf("updated %d posts", updated)
	if err != nil {
		status, message = domain.ExecutionError, err.Error()
	}

	logErr := m.repository.LogExecution(ctx, domain.ExecutionLog{
		RunID:             runID,
		Type:              executionTypeMetrics,
		Status:            status,
		Message:           message,
		ArticlesProcessed: updated,
		CreatedAt:         m.now(),
	})
	if logErr != nil {
		m.logger.Warn("execution log write failed", "error", logErr)
	}

	return updated, err
}

func (m *MetricsRefresher) refresh(ctx context.Context) (int, error) {
	since := m.now().AddDate(0, 0, -metricsLookbackDays)
	posts, err := m.repository.PostsSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load recent posts: %w", err)
	}
	if len(posts) == 0 {
		return 0, nil
	}

	tweetIDs := make([]string, len(posts))
	for i, p := range posts {
		tweetIDs[i] = p.TweetID
	}

	metrics, err := m.publisher.TweetMetrics(ctx, tweetIDs)
	if err != nil {
		return 0, fmt.Errorf("fetch tweet metrics: %w", err)
	}

	for _, metric := range metrics {
		if err := m.repository.UpdateEngagement(ctx, metric.TweetID, metric.Impressions, metric.Engagements); err != nil {
			return 0, fmt.Errorf("update metrics for %s: %w", metric.TweetID, err)
		}
	}

	m.logger.Info("engagement metrics refreshed", "posts", len(metrics))
	return len(metrics), nil
}
