package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"techpost/internal/domain"
	"techpost/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostRepository is the Postgres implementation of the posting history,
// the append-only token ledger, and the execution log.
type PostRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PostRepository = (*PostRepository)(nil)

// NewPostRepository wires a pgx pool.
func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

// LatestPost returns the most recent publish of the article, or nil when
// it has never been posted.
func (r *PostRepository) LatestPost(ctx context.Context, articleID string) (*domain.PostRecord, error) {
	query, args, err := psql.
		Select(postColumns...).
		From("posts").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("posted_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest-post query: %w", err)
	}

	row := r.pool.QueryRow(ctx, query, args...)
	record, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest post: %w", err)
	}
	return &record, nil
}

// PostsAfter returns publishes of the article newer than the cutoff,
// newest first.
func (r *PostRepository) PostsAfter(ctx context.Context, articleID string, after time.Time) ([]domain.PostRecord, error) {
	query, args, err := psql.
		Select(postColumns...).
		From("posts").
		Where(sq.And{sq.Eq{"article_id": articleID}, sq.Gt{"posted_at": after}}).
		OrderBy("posted_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts-after query: %w", err)
	}
	return r.queryPosts(ctx, query, args)
}

// PostsSince lists all publishes after the cutoff, newest first.
func (r *PostRepository) PostsSince(ctx context.Context, since time.Time) ([]domain.PostRecord, error) {
	query, args, err := psql.
		Select(postColumns...).
		From("posts").
		Where(sq.Gt{"posted_at": since}).
		OrderBy("posted_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts-since query: %w", err)
	}
	return r.queryPosts(ctx, query, args)
}

// SavePost inserts one publish record.
func (r *PostRepository) SavePost(ctx context.Context, post domain.PostRecord) error {
	hashtags, err := json.Marshal(post.Hashtags)
	if err != nil {
		return fmt.Errorf("marshal hashtags: %w", err)
	}

	query, args, err := psql.
		Insert("posts").
		Columns("article_id", "article_title", "article_url", "author_id",
			"tweet_id", "tweet_text", "hashtags", "score", "meta_score", "ai_model", "posted_at").
		Values(post.ArticleID, post.ArticleTitle, post.ArticleURL, post.AuthorID,
			post.TweetID, post.TweetText, hashtags, post.Score, post.MetaScore, post.AIModel, post.PostedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert post: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// SaveTokenUsage appends one ledger entry.
func (r *PostRepository) SaveTokenUsage(ctx context.Context, usage domain.TokenUsage) error {
	query, args, err := psql.
		Insert("token_usage").
		Columns("article_id", "operation", "model", "input_tokens", "output_tokens", "cost_usd", "created_at").
		Values(usage.ArticleID, string(usage.Operation), usage.Model,
			usage.InputTokens, usage.OutputTokens, usage.CostUSD, usage.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token usage: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert token usage: %w", err)
	}
	return nil
}

// LogExecution appends one execution-log entry.
func (r *PostRepository) LogExecution(ctx context.Context, entry domain.ExecutionLog) error {
	query, args, err := psql.
		Insert("execution_logs").
		Columns("run_id", "execution_type", "status", "message",
			"articles_processed", "articles_posted", "total_cost_usd", "created_at").
		Values(entry.RunID, entry.Type, string(entry.Status), entry.Message,
			entry.ArticlesProcessed, entry.ArticlesPosted, entry.TotalCostUSD, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert execution log: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert execution log: %w", err)
	}
	return nil
}

// UpdateEngagement backfills the engagement counters of one post.
func (r *PostRepository) UpdateEngagement(ctx context.Context, tweetID string, impressions, engagements int) error {
	query, args, err := psql.
		Update("posts").
		Set("impressions", impressions).
		Set("engagements", engagements).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"tweet_id": tweetID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update engagement: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update engagement: %w", err)
	}
	return nil
}

// Stats aggregates posting totals for reporting.
func (r *PostRepository) Stats(ctx context.Context) (domain.Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM posts),
			COALESCE((SELECT SUM(cost_usd) FROM token_usage), 0),
			COALESCE((SELECT AVG(engagements::float / impressions * 100)
			          FROM posts WHERE impressions > 0), 0)`

	var stats domain.Stats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.TotalPosts, &stats.TotalCostUSD, &stats.AvgEngagementRate)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

var postColumns = []string{
	"id", "article_id", "article_title", "article_url", "author_id",
	"tweet_id", "tweet_text", "hashtags", "score", "meta_score",
	"ai_model", "posted_at", "impressions", "engagements",
}

func (r *PostRepository) queryPosts(ctx context.Context, query string, args []any) ([]domain.PostRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.PostRecord
	for rows.Next() {
		record, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}

func scanPost(row pgx.Row) (domain.PostRecord, error) {
	var record domain.PostRecord
	var hashtags []byte

	err := row.Scan(&record.ID, &record.ArticleID, &record.ArticleTitle, &record.ArticleURL,
		&record.AuthorID, &record.TweetID, &record.TweetText, &hashtags,
		&record.Score, &record.MetaScore, &record.AIModel, &record.PostedAt,
		&record.Impressions, &record.Engagements)
	if err != nil {
		return domain.PostRecord{}, err
	}

	if len(hashtags) > 0 {
		if err := json.Unmarshal(hashtags, &record.Hashtags); err != nil {
			return domain.PostRecord{}, fmt.Errorf("unmarshal hashtags: %w", err)
		}
	}
	return record, nil
}
