// Package aiengine builds the model prompts, invokes the generative
// model, and parses/validates the structured responses for both the batch
// evaluation and the content generation call sites.
package aiengine

import (
	"context"
	"fmt"
	"log/slog"

	"techpost/internal/domain"
	"techpost/internal/ports"
	"techpost/internal/scoring"
)

// maxBatchSize caps articles per evaluation call to bound both cost and
// failure blast radius.
const maxBatchSize = 5

// ModelConfig binds a tier to a concrete model identifier and its call
// parameters.
type ModelConfig struct {
	ID          string
	MaxTokens   int
	Temperature float64
}

// DefaultModels maps tiers to the deployment's model identifiers.
var DefaultModels = map[scoring.ModelTier]ModelConfig{
	scoring.TierPremium: {ID: "claude-sonnet-4-20250514", MaxTokens: 2000, Temperature: 0.7},
	scoring.TierCheap:   {ID: "claude-3-5-haiku-20241022", MaxTokens: 1500, Temperature: 0.7},
}

// Engine evaluates article batches and generates post content.
type Engine struct {
	chat    ports.ChatModel
	models  map[scoring.ModelTier]ModelConfig
	pricing map[string]Pricing
	logger  *slog.Logger
}

// NewEngine wires a chat model with tier and pricing tables. Nil maps
// fall back to the defaults.
func NewEngine(chat ports.ChatModel, models map[scoring.ModelTier]ModelConfig, pricing map[string]Pricing, logger *slog.Logger) *Engine {
	if models == nil {
		models = DefaultModels
	}
	if pricing == nil {
		pricing = DefaultPricing
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{chat: chat, models: models, pricing: pricing, logger: logger}
}

func (e *Engine) modelFor(tier scoring.ModelTier) (ModelConfig, error) {
	cfg, ok := e.models[tier]
	if !ok {
		return ModelConfig{}, fmt.Errorf("no model configured for tier %q", tier)
	}
	return cfg, nil
}

// EvaluateBatch compresses 1..5 articles into a single prompt, invokes
// the model once, and returns the validated evaluations with token
// accounting.
func (e *Engine) EvaluateBatch(ctx context.Context, articles []domain.ScoredArticle, tier scoring.ModelTier) (domain.BatchEvaluationResult, error) {
	if len(articles) == 0 {
		return domain.BatchEvaluationResult{}, fmt.Errorf("evaluate batch: no articles")
	}
	if len(articles) > maxBatchSize {
		return domain.BatchEvaluationResult{}, fmt.Errorf("evaluate batch: %d articles exceeds cap of %d", len(articles), maxBatchSize)
	}

	cfg, err := e.modelFor(tier)
	if err != nil {
		return domain.BatchEvaluationResult{}, err
	}

	compressed := make([]string, len(articles))
	submitted := make(map[string]struct{}, len(articles))
	for i, a := range articles {
		compressed[i] = CompressForEvaluation(a.Article)
		submitted[a.ID] = struct{}{}
	}

	prompt := buildEvaluationPrompt(compressed)
	completion, err := e.chat.Complete(ctx, prompt, cfg.ID, cfg.MaxTokens, cfg.Temperature)
	if err != nil {
		return domain.BatchEvaluationResult{}, fmt.Errorf("evaluation call: %w", err)
	}

	payload, err := extractJSONBlock(completion.Text)
	if err != nil {
		return domain.BatchEvaluationResult{}, fmt.Errorf("evaluation response: %w", err)
	}

	evaluations, err := parseEvaluations(payload, submitted)
	if err != nil {
		return domain.BatchEvaluationResult{}, fmt.Errorf("evaluation response: %w", err)
	}

	e.logger.Info("batch evaluated",
		"articles", len(articles),
		"model", cfg.ID,
		"total_tokens", completion.Usage.Total())

	return domain.BatchEvaluationResult{
		Evaluations: evaluations,
		TotalTokens: completion.Usage.Total(),
		ModelUsed:   cfg.ID,
	}, nil
}

// GenerateTweet produces post content for one article. The returned usage
// is the exact split reported by the model call.
func (e *Engine) GenerateTweet(ctx context.Context, article domain.Article, score float64, tier scoring.ModelTier) (domain.TweetContent, domain.Usage, error) {
	prompt := buildGenerationPrompt(article, score, OptimizeForGeneration(article))
	return e.generate(ctx, prompt, tier)
}

// GenerateTweetWithExamples is the few-shot variant conditioned on prior
// high-performing posts. The output contract is unchanged.
func (e *Engine) GenerateTweetWithExamples(ctx context.Context, article domain.Article, score float64, examples []domain.SuccessExample, tier scoring.ModelTier) (domain.TweetContent, domain.Usage, error) {
	if len(examples) == 0 {
		return e.GenerateTweet(ctx, article, score, tier)
	}
	prompt := buildFewShotPrompt(article, score, OptimizeForGeneration(article), examples)
	return e.generate(ctx, prompt, tier)
}

func (e *Engine) generate(ctx context.Context, prompt string, tier scoring.ModelTier) (domain.TweetContent, domain.Usage, error) {
	cfg, err := e.modelFor(tier)
	if err != nil {
		return domain.TweetContent{}, domain.Usage{}, err
	}

	completion, err := e.chat.Complete(ctx, prompt, cfg.ID, cfg.MaxTokens, cfg.Temperature)
	if err != nil {
		return domain.TweetContent{}, domain.Usage{}, fmt.Errorf("generation call: %w", err)
	}

	payload, err := extractJSONBlock(completion.Text)
	if err != nil {
		return domain.TweetContent{}, domain.Usage{}, fmt.Errorf("generation response: %w", err)
	}

	content, err := parseTweetContent(payload)
	if err != nil {
		return domain.TweetContent{}, domain.Usage{}, fmt.Errorf("generation response: %w", err)
	}

	return content, completion.Usage, nil
}

// ModelID resolves a tier to its configured model identifier.
func (e *Engine) ModelID(tier scoring.ModelTier) (string, error) {
	cfg, err := e.modelFor(tier)
	if err != nil {
		return "", err
	}
	return cfg.ID, nil
}

// EvaluationCost prices a batch evaluation from its combined token count,
// apportioned 70/30 because the ledger context has no per-purpose split.
func (e *Engine) EvaluationCost(result domain.BatchEvaluationResult) (float64, error) {
	in, out := ApportionTokens(result.TotalTokens)
	return CostUSD(e.pricing, result.ModelUsed, float64(in), float64(out))
}

// GenerationCost prices a generation call from its exact reported usage.
func (e *Engine) GenerationCost(model string, usage domain.Usage) (float64, error) {
	return CostUSD(e.pricing, model, float64(usage.InputTokens), float64(usage.OutputTokens))
}
