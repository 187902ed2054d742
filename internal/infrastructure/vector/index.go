package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"techpost/internal/domain"
	"techpost/internal/ports"
)

// PgIndex stores article embeddings in Postgres and answers cosine
// nearest-neighbor queries through pgvector.
type PgIndex struct {
	pool *pgxpool.Pool
}

var _ ports.VectorIndex = (*PgIndex)(nil)

// NewPgIndex wires a pool that has pgvector types registered.
func NewPgIndex(pool *pgxpool.Pool) *PgIndex {
	return &PgIndex{pool: pool}
}

// Insert upserts the embedding of one article.
func (i *PgIndex) Insert(ctx context.Context, articleID string, vec []float32, meta domain.EmbeddingMetadata) error {
	const query = `
		INSERT INTO article_embeddings (article_id, embedding, title, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (article_id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    title = EXCLUDED.title,
		    url = EXCLUDED.url`

	_, err := i.pool.Exec(ctx, query, articleID, pgvector.NewVector(vec), meta.Title, meta.URL, meta.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// QueryNearest returns the topK closest articles in cosine-similarity
// space, best match first.
func (i *PgIndex) QueryNearest(ctx context.Context, vec []float32, topK int) ([]domain.SimilarityMatch, error) {
	const query = `
		SELECT article_id, 1 - (embedding <=> $1) AS similarity
		FROM article_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := i.pool.Query(ctx, query, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	defer rows.Close()

	var matches []domain.SimilarityMatch
	for rows.Next() {
		var m domain.SimilarityMatch
		if err := rows.Scan(&m.ArticleID, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return matches, nil
}
