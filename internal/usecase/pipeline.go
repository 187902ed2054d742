// Package usecase composes the selection-and-publishing pipeline: fetch
// candidates, score, filter, deduplicate, evaluate, pick the best,
// generate content, publish, and record.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"techpost/internal/aiengine"
	"techpost/internal/dedup"
	"techpost/internal/domain"
	"techpost/internal/ports"
	"techpost/internal/scoring"
	"techpost/internal/strategy"
)

// Stage names the pipeline states. A run either reaches StageDone or
// exits early at the stage that produced zero candidates.
type Stage string

const (
	StageFetching      Stage = "fetching"
	StageMetaFiltering Stage = "meta_filtering"
	StageDeduplicating Stage = "deduplicating"
	StageEvaluating    Stage = "evaluating"
	StageSelecting     Stage = "selecting"
	StageGenerating    Stage = "generating"
	StagePublishing    Stage = "publishing"
	StageRecording     Stage = "recording"
	StageDone          Stage = "done"
)

// RunKind selects the strategy source: the weekday table for the morning
// run, the evening variant for the second daily run.
type RunKind string

const (
	RunMorning RunKind = "morning"
	RunEvening RunKind = "evening"
)

const (
	executionTypePost = "post"

	// dedupCandidateLimit is how many top-ranked candidates the gate
	// examines per run.
	dedupCandidateLimit = 3
	// evaluationBatchCap mirrors the engine's hard batch limit.
	evaluationBatchCap = 5
	// watermarkFallbackDays seeds the fetch window when no watermark
	// exists yet.
	watermarkFallbackDays = 7
)

// RunReport is the outcome of one pipeline invocation. Early exits are
// successful outcomes, not errors.
type RunReport struct {
	RunID        string
	Kind         RunKind
	Stage        Stage
	Message      string
	Posted       bool
	ArticleID    string
	ArticleTitle string
	TweetID      string
	Score        float64
	Processed    int
	CostUSD      float64
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Repository ports.PostRepository
	Gate       *dedup.Gate
	Engine     *aiengine.Engine
	Publisher  ports.Publisher
	Notifier   ports.Notifier
	Watermark  ports.WatermarkStore
	Embedder   ports.Embedder
	Index      ports.VectorIndex
	Logger     *slog.Logger
}

// PipelineConfig carries the run parameters that are not adapters.
type PipelineConfig struct {
	Authors    []string
	Location   *time.Location
	Thresholds strategy.Thresholds
}

// Pipeline implements the publishing orchestrator. One run publishes at
// most one article; the caller guarantees at most one concurrent run.
type Pipeline struct {
	source     ports.ArticleSource
	repository ports.PostRepository
	gate       *dedup.Gate
	engine     *aiengine.Engine
	publisher  ports.Publisher
	notifier   ports.Notifier
	watermark  ports.WatermarkStore
	embedder   ports.Embedder
	index      ports.VectorIndex

	authors    []string
	location   *time.Location
	thresholds strategy.Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		gate:       deps.Gate,
		engine:     deps.Engine,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		watermark:  deps.Watermark,
		embedder:   deps.Embedder,
		index:      deps.Index,
		authors:    cfg.Authors,
		location:   loc,
		thresholds: cfg.Thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one pipeline invocation. Transport and validation failures
// abort the run with an error execution-log entry and a best-effort error
// notification; empty stages terminate successfully.
func (p *Pipeline) Run(ctx context.Context, kind RunKind) (RunReport, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "kind", string(kind))

	report, err := p.run(ctx, runID, kind, logger)
	if err != nil {
		p.logExecution(ctx, runID, domain.ExecutionError, err.Error(), 0, 0, 0, logger)
		if p.notifier != nil {
			if nerr := p.notifier.NotifyError(ctx, err.Error()); nerr != nil {
				logger.Warn("error notification failed", "error", nerr)
			}
		}
		return RunReport{RunID: runID, Kind: kind}, err
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, kind RunKind, logger *slog.Logger) (RunReport, error) {
	now := p.now().In(p.location)
	strat := p.strategyFor(kind, now)

	// Fetching
	since, err := p.fetchWindowStart(ctx, now, strat)
	if err != nil {
		return RunReport{}, fmt.Errorf("load watermark: %w", err)
	}
	logger.Info("fetching articles", "since", since, "authors", len(p.authors))

	articles, err := p.source.FetchByAuthors(ctx, p.authors)
	if err != nil {
		return RunReport{}, fmt.Errorf("fetch articles: %w", err)
	}
	fresh := filterSince(articles, since)
	if len(fresh) == 0 {
		return p.exitEmpty(ctx, runID, kind, StageFetching, "no new articles", 0, 0, logger)
	}

	// MetaFiltering
	filtered := scoring.FilterByMetaScore(fresh, strat.ScoreThreshold, now)
	if kind == RunEvening && !strat.PreferRecent {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].UpdatedAt.Before(filtered[j].UpdatedAt)
		})
	}
	if len(filtered) == 0 {
		return p.exitEmpty(ctx, runID, kind, StageMetaFiltering, "no articles passed meta score filter", len(fresh), 0, logger)
	}
	logger.Info("meta filter applied", "candidates", len(filtered), "threshold", strat.ScoreThreshold)

	// Deduplicating
	eligible, err := p.deduplicate(ctx, filtered, strat, now, logger)
	if err != nil {
		return RunReport{}, err
	}
	if len(eligible) == 0 {
		return p.exitEmpty(ctx, runID, kind, StageDeduplicating, "all candidates already posted or duplicated", len(filtered), 0, logger)
	}

	// Evaluating
	tier := scoring.SelectModelTier(eligible[0].MetaScore)
	if tier == scoring.TierSkip {
		return p.exitEmpty(ctx, runID, kind, StageEvaluating, "candidates skipped due to low meta score", len(eligible), 0, logger)
	}

	batch := eligible
	if len(batch) > evaluationBatchCap {
		batch = batch[:evaluationBatchCap]
	}
	result, err := p.engine.EvaluateBatch(ctx, batch, tier)
	if err != nil {
		return RunReport{}, err
	}
	evalCost, err := p.engine.EvaluationCost(result)
	if err != nil {
		return RunReport{}, err
	}
	inTokens, outTokens := aiengine.ApportionTokens(result.TotalTokens)
	if err := p.repository.SaveTokenUsage(ctx, domain.TokenUsage{
		ArticleID:    batch[0].ID,
		Operation:    domain.OperationEvaluation,
		Model:        result.ModelUsed,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      evalCost,
		CreatedAt:    now,
	}); err != nil {
		return RunReport{}, fmt.Errorf("record evaluation tokens: %w", err)
	}

	// Selecting
	best, ok := pickBest(result.Evaluations)
	if !ok {
		return p.exitEmpty(ctx, runID, kind, StageSelecting, "no articles recommended", len(batch), evalCost, logger)
	}
	winner, ok := findArticle(batch, best.ArticleID)
	if !ok {
		return RunReport{}, fmt.Errorf("best article %s not found in batch", best.ArticleID)
	}

	// Generating
	genTier := scoring.GenerationTier(best.TotalScore)
	content, usage, err := p.engine.GenerateTweet(ctx, winner.Article, best.TotalScore, genTier)
	if err != nil {
		return RunReport{}, err
	}
	fullText := assembleTweet(content, winner.URL)

	// Publishing
	tweetID, err := p.publisher.PostTweet(ctx, fullText)
	if err != nil {
		return RunReport{}, fmt.Errorf("publish tweet: %w", err)
	}
	logger.Info("tweet published", "tweet_id", tweetID, "article_id", winner.ID, "score", best.TotalScore)

	// Recording
	genCost, err := p.recordOutcome(ctx, winner, best, content, result.ModelUsed, genTier, usage, tweetID, now, logger)
	if err != nil {
		return RunReport{}, err
	}

	totalCost := evalCost + genCost
	p.logExecution(ctx, runID, domain.ExecutionSuccess, "posted: "+winner.Title, len(batch), 1, totalCost, logger)

	return RunReport{
		RunID:        runID,
		Kind:         kind,
		Stage:        StageDone,
		Message:      "article posted",
		Posted:       true,
		ArticleID:    winner.ID,
		ArticleTitle: winner.Title,
		TweetID:      tweetID,
		Score:        best.TotalScore,
		Processed:    len(batch),
		CostUSD:      totalCost,
	}, nil
}

func (p *Pipeline) strategyFor(kind RunKind, now time.Time) strategy.PostingStrategy {
	if kind == RunEvening {
		return strategy.Evening(now, p.thresholds)
	}
	return strategy.ForWeekday(now.Weekday())
}

// fetchWindowStart combines the process-wide watermark with the
// strategy's lookback window. The watermark governs the fetch window
// only; eligibility is the gate's concern.
func (p *Pipeline) fetchWindowStart(ctx context.Context, now time.Time, strat strategy.PostingStrategy) (time.Time, error) {
	since, err := p.watermark.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if since.IsZero() {
		since = now.AddDate(0, 0, -watermarkFallbackDays)
	}
	if lookback := now.AddDate(0, 0, -strat.LookbackDays); lookback.After(since) {
		since = lookback
	}
	return since, nil
}

func (p *Pipeline) deduplicate(ctx context.Context, candidates []domain.ScoredArticle, strat strategy.PostingStrategy, now time.Time, logger *slog.Logger) ([]domain.ScoredArticle, error) {
	limit := dedupCandidateLimit
	if len(candidates) < limit {
		limit = len(candidates)
	}

	var eligible []domain.ScoredArticle
	for _, candidate := range candidates[:limit] {
		res, err := p.gate.Check(ctx, candidate.Article, strat, now)
		if err != nil {
			return nil, fmt.Errorf("dedup check for %s: %w", candidate.ID, err)
		}
		if res.Eligible {
			eligible = append(eligible, candidate)
			continue
		}
		logger.Info("candidate rejected by dedup gate",
			"article_id", candidate.ID,
			"reason", string(res.Reason),
			"similar_id", res.SimilarID,
			"similarity", res.Similarity)
	}
	return eligible, nil
}

func (p *Pipeline) recordOutcome(ctx context.Context, winner domain.ScoredArticle, best domain.Evaluation, content domain.TweetContent, evalModel string, genTier scoring.ModelTier, usage domain.Usage, tweetID string, now time.Time, logger *slog.Logger) (float64, error) {
	if err := p.repository.SavePost(ctx, domain.PostRecord{
		ArticleID:    winner.ID,
		ArticleTitle: winner.Title,
		ArticleURL:   winner.URL,
		AuthorID:     winner.Author.ID,
		TweetID:      tweetID,
		TweetText:    content.Text,
		Hashtags:     content.Hashtags,
		Score:        best.TotalScore,
		MetaScore:    winner.MetaScore,
		AIModel:      evalModel,
		PostedAt:     now,
	}); err != nil {
		return 0, fmt.Errorf("save post record: %w", err)
	}

	genModel, err := p.engine.ModelID(genTier)
	if err != nil {
		return 0, err
	}
	genCost, err := p.engine.GenerationCost(genModel, usage)
	if err != nil {
		return 0, err
	}
	if err := p.repository.SaveTokenUsage(ctx, domain.TokenUsage{
		ArticleID:    winner.ID,
		Operation:    domain.OperationGeneration,
		Model:        genModel,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      genCost,
		CreatedAt:    now,
	}); err != nil {
		return 0, fmt.Errorf("record generation tokens: %w", err)
	}

	p.storeEmbedding(ctx, winner.Article, now, logger)

	if p.notifier != nil {
		if err := p.notifier.NotifyPostSuccess(ctx, winner.Title, winner.URL, tweetID, best.TotalScore); err != nil {
			logger.Warn("post notification failed", "error", err)
		}
	}

	if err := p.watermark.Set(ctx, now); err != nil {
		return 0, fmt.Errorf("advance watermark: %w", err)
	}

	return genCost, nil
}

// storeEmbedding persists the winner's embedding for future dedup.
// Best-effort: a failed insert only weakens future near-duplicate checks.
func (p *Pipeline) storeEmbedding(ctx context.Context, article domain.Article, now time.Time, logger *slog.Logger) {
	if p.embedder == nil || p.index == nil {
		return
	}
	vector, err := p.embedder.Embed(ctx, dedup.EmbeddingText(article))
	if err != nil {
		logger.Warn("embedding for storage failed", "article_id", article.ID, "error", err)
		return
	}
	err = p.index.Insert(ctx, article.ID, vector, domain.EmbeddingMetadata{
		Title:     article.Title,
		URL:       article.URL,
		CreatedAt: now,
	})
	if err != nil {
		logger.Warn("embedding insert failed", "article_id", article.ID, "error", err)
	}
}

func (p *Pipeline) exitEmpty(ctx context.Context, runID string, kind RunKind, stage Stage, message string, processed int, cost float64, logger *slog.Logger) (RunReport, error) {
	logger.Info("run finished without publish", "stage", string(stage), "message", message, "processed", processed)
	p.logExecution(ctx, runID, domain.ExecutionSuccess, message, processed, 0, cost, logger)
	return RunReport{
		RunID:     runID,
		Kind:      kind,
		Stage:     stage,
		Message:   message,
		Processed: processed,
		CostUSD:   cost,
	}, nil
}

func (p *Pipeline) logExecution(ctx context.Context, runID string, status domain.ExecutionStatus, message string, processed, posted int, cost float64, logger *slog.Logger) {
	err := p.repository.LogExecution(ctx, domain.ExecutionLog{
		RunID:             runID,
		Type:              executionTypePost,
		Status:            status,
		Message:           message,
		ArticlesProcessed: processed,
		ArticlesPosted:    posted,
		TotalCostUSD:      cost,
		CreatedAt:         p.now().In(p.location),
	})
	if err != nil {
		logger.Warn("execution log write failed", "error", err)
	}
}

// pickBest returns the recommended evaluation with the maximal total
// score. Encounter order breaks ties, and the batch order is the
// deterministic candidate ranking, so the pick is reproducible.
func pickBest(evaluations []domain.Evaluation) (domain.Evaluation, bool) {
	var best domain.Evaluation
	found := false
	for _, e := range evaluations {
		if !e.Recommended {
			continue
		}
		if !found || e.TotalScore > best.TotalScore {
			best = e
			found = true
		}
	}
	return best, found
}

func findArticle(articles []domain.ScoredArticle, id string) (domain.ScoredArticle, bool) {
	for _, a := range articles {
		if a.ID == id {
			return a, true
		}
	}
	return domain.ScoredArticle{}, false
}

// filterSince keeps articles updated strictly after the cutoff.
func filterSince(articles []domain.Article, since time.Time) []domain.Article {
	var out []domain.Article
	for _, a := range articles {
		if a.UpdatedAt.After(since) {
			out = append(out, a)
		}
	}
	return out
}

func assembleTweet(content domain.TweetContent, url string) string {
	hashtags := make([]string, len(content.Hashtags))
	for i, tag := range content.Hashtags {
		hashtags[i] = "#" + tag
	}
	return content.Text + "\n\n" + url + "\n\n" + strings.Join(hashtags, " ")
}
