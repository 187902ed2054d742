// Package dedup decides whether a candidate article may be published:
// not re-posted within its cooldown, and not a near-duplicate of a
// recently posted story.
package dedup

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"techpost/internal/domain"
	"techpost/internal/ports"
	"techpost/internal/strategy"
)

// Reason explains a gate decision, making the degraded fail-open path a
// visible, testable branch.
type Reason string

const (
	ReasonNeverPosted      Reason = "never_posted"
	ReasonCooldownElapsed  Reason = "cooldown_elapsed"
	ReasonRepostDisallowed Reason = "repost_disallowed"
	ReasonWithinCooldown   Reason = "within_cooldown"
	ReasonNearDuplicate    Reason = "near_duplicate"
	ReasonNoSimilarRecent  Reason = "no_similar_recent"
	ReasonIndexUnavailable Reason = "index_unavailable"
)

// Result is the gate's explicit decision for one candidate.
type Result struct {
	Eligible   bool
	Reason     Reason
	SimilarID  string
	Similarity float64
}

const (
	// similarThreshold flags a recently-posted similar story.
	similarThreshold = 0.8
	// identicalThreshold marks two articles as essentially the same.
	identicalThreshold = 0.95

	defaultRepostCooldownDays  = 7
	defaultSimilarCooldownDays = 3
	similarTopK                = 3
)

// Gate combines the already-posted check with the near-duplicate check.
type Gate struct {
	posts    ports.PostRepository
	embedder ports.Embedder
	index    ports.VectorIndex

	repostCooldown  time.Duration
	similarCooldown time.Duration
	logger          *slog.Logger
}

// NewGate builds a gate. Zero cooldowns select the defaults (7 days for
// reposts, 3 days for near-duplicates). A nil embedder or index disables
// the near-duplicate check.
func NewGate(posts ports.PostRepository, embedder ports.Embedder, index ports.VectorIndex, repostCooldown, similarCooldown time.Duration, logger *slog.Logger) *Gate {
	if repostCooldown <= 0 {
		repostCooldown = defaultRepostCooldownDays * 24 * time.Hour
	}
	if similarCooldown <= 0 {
		similarCooldown = defaultSimilarCooldownDays * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		posts:           posts,
		embedder:        embedder,
		index:           index,
		repostCooldown:  repostCooldown,
		similarCooldown: similarCooldown,
		logger:          logger,
	}
}

// EmbeddingText is the canonical text embedded for deduplication: the
// article title followed by its tag names.
func EmbeddingText(a domain.Article) string {
	return a.Title + " " + strings.Join(a.TagNames(), " ")
}

// Check runs both checks in order. Repository errors on the exact-id
// check abort the run; embedding and index failures degrade to eligible,
// since silent over-posting beats a dead pipeline.
func (g *Gate) Check(ctx context.Context, article domain.Article, strat strategy.PostingStrategy, now time.Time) (Result, error) {
	res, err := g.checkAlreadyPosted(ctx, article, strat, now)
	if err != nil {
		return Result{}, err
	}
	if !res.Eligible {
		return res, nil
	}

	if sim := g.checkNearDuplicate(ctx, article, now); !sim.Eligible || sim.Reason == ReasonIndexUnavailable {
		return sim, nil
	}
	return res, nil
}

func (g *Gate) checkAlreadyPosted(ctx context.Context, article domain.Article, strat strategy.PostingStrategy, now time.Time) (Result, error) {
	latest, err := g.posts.LatestPost(ctx, article.ID)
	if err != nil {
		return Result{}, err
	}
	if latest == nil {
		return Result{Eligible: true, Reason: ReasonNeverPosted}, nil
	}
	if !strat.AllowRepost {
		return Result{Eligible: false, Reason: ReasonRepostDisallowed}, nil
	}
	if latest.PostedAt.After(now.Add(-g.repostCooldown)) {
		return Result{Eligible: false, Reason: ReasonWithinCooldown}, nil
	}
	return Result{Eligible: true, Reason: ReasonCooldownElapsed}, nil
}

func (g *Gate) checkNearDuplicate(ctx context.Context, article domain.Article, now time.Time) Result {
	if g.embedder == nil || g.index == nil {
		return Result{Eligible: true, Reason: ReasonIndexUnavailable}
	}

	vector, err := g.embedder.Embed(ctx, EmbeddingText(article))
	if err != nil {
		g.logger.Warn("embedding failed, skipping near-duplicate check", "article_id", article.ID, "error", err)
		return Result{Eligible: true, Reason: ReasonIndexUnavailable}
	}

	matches, err := g.index.QueryNearest(ctx, vector, similarTopK)
	if err != nil {
		g.logger.Warn("similarity query failed, skipping near-duplicate check", "article_id", article.ID, "error", err)
		return Result{Eligible: true, Reason: ReasonIndexUnavailable}
	}

	cutoff := now.Add(-g.similarCooldown)
	for _, match := range matches {
		if match.Similarity < similarThreshold {
			continue
		}
		posted, err := g.posts.PostsAfter(ctx, match.ArticleID, cutoff)
		if err != nil {
			g.logger.Warn("post-history lookup failed for similar article", "article_id", match.ArticleID, "error", err)
			continue
		}
		if len(posted) > 0 {
			return Result{
				Eligible:   false,
				Reason:     ReasonNearDuplicate,
				SimilarID:  match.ArticleID,
				Similarity: match.Similarity,
			}
		}
	}

	return Result{Eligible: true, Reason: ReasonNoSimilarRecent}
}

// Identical reports whether the best match is essentially the same
// article, regardless of posting recency. Used for logging only.
func Identical(similarity float64) bool {
	return similarity >= identicalThreshold
}
