// Package app wires configuration into adapters and use cases and owns
// the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"techpost/internal/aiengine"
	"techpost/internal/config"
	"techpost/internal/dedup"
	"techpost/internal/infrastructure/anthropic"
	"techpost/internal/infrastructure/httpapi"
	"techpost/internal/infrastructure/qiita"
	"techpost/internal/infrastructure/scheduler"
	"techpost/internal/infrastructure/slack"
	"techpost/internal/infrastructure/storage"
	"techpost/internal/infrastructure/vector"
	"techpost/internal/infrastructure/watermark"
	"techpost/internal/infrastructure/x"
	"techpost/internal/logging"
	"techpost/internal/ports"
	"techpost/internal/scoring"
	"techpost/internal/strategy"
	"techpost/internal/usecase"
)

// Application holds the wired components and the shared connection pools.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	pool   *pgxpool.Pool
	rdb    *redis.Client
	server *httpapi.Server
	runner *usecase.JobRunner
}

// New builds the full application graph from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	pool, err := storage.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	repository := storage.NewPostRepository(pool)
	source := qiita.NewClient(cfg.Qiita.BaseURL, cfg.Qiita.Token, logging.Component(baseLogger, "qiita"))
	chat := anthropic.NewClient(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey)
	embedder := vector.NewHTTPEmbedder(cfg.Embeddings.BaseURL, cfg.Embeddings.Model)
	index := vector.NewPgIndex(pool)
	marks := watermark.NewRedisStore(rdb, "")

	var publisher ports.Publisher = x.NewClient(
		cfg.X.BaseURL,
		cfg.X.APIKey, cfg.X.APISecret,
		cfg.X.AccessToken, cfg.X.AccessSecret,
	)

	var notifier ports.Notifier
	if cfg.Slack.WebhookURL != "" {
		notifier = slack.NewNotifier(cfg.Slack.WebhookURL)
	}

	gate := dedup.NewGate(
		repository, embedder, index,
		time.Duration(cfg.Posting.RepostCooldownDays)*24*time.Hour,
		time.Duration(cfg.Posting.SimilarCooldownDays)*24*time.Hour,
		logging.Component(baseLogger, "dedup"),
	)

	engine := aiengine.NewEngine(chat, modelsFromConfig(cfg.Anthropic), nil,
		logging.Component(baseLogger, "aiengine"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repository,
		Gate:       gate,
		Engine:     engine,
		Publisher:  publisher,
		Notifier:   notifier,
		Watermark:  marks,
		Embedder:   embedder,
		Index:      index,
		Logger:     logging.Component(baseLogger, "pipeline"),
	}, usecase.PipelineConfig{
		Authors:  cfg.Qiita.Authors,
		Location: cfg.Scheduler.Location(),
		Thresholds: strategy.Thresholds{
			EveningPost:    cfg.Posting.EveningThreshold,
			AdventCalendar: cfg.Posting.AdventThreshold,
		},
	})

	metrics := usecase.NewMetricsRefresher(repository, publisher,
		logging.Component(baseLogger, "metrics"))

	runner := usecase.NewJobRunner(
		scheduler.NewHourlyTicker(),
		pipeline, metrics,
		cfg.Scheduler.Location(),
		cfg.Scheduler.MorningHour, cfg.Scheduler.EveningHour, cfg.Scheduler.MetricsHour,
		logging.Component(baseLogger, "scheduler"),
	)

	server := httpapi.NewServer(pipeline, metrics, repository,
		logging.Component(baseLogger, "http"))

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		pool:   pool,
		rdb:    rdb,
		server: server,
		runner: runner,
	}, nil
}

// Run starts the scheduler and the HTTP server and blocks until the
// context is cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.Server.Addr)
	}()

	a.logger.Info("application started", "addr", a.cfg.Server.Addr,
		"timezone", a.cfg.Scheduler.Timezone)

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return a.shutdown()
	}
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.runner.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown failed", "error", err)
	}
	a.pool.Close()
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("redis close failed", "error", err)
	}

	a.logger.Info("application stopped")
	return nil
}

func modelsFromConfig(cfg config.AnthropicConfig) map[scoring.ModelTier]aiengine.ModelConfig {
	models := map[scoring.ModelTier]aiengine.ModelConfig{}
	for tier, mc := range map[scoring.ModelTier]config.ModelConfig{
		scoring.TierCheap:   cfg.CheapModel,
		scoring.TierPremium: cfg.PremiumModel,
	} {
		if mc.ID == "" {
			continue
		}
		models[tier] = aiengine.ModelConfig{
			ID:          mc.ID,
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
		}
	}
	if len(models) < 2 {
		return nil
	}
	return models
}
