// Package httpapi exposes the manual-trigger and reporting endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"techpost/internal/ports"
	"techpost/internal/usecase"
)

// Server hosts the HTTP entrypoints: health, manual run triggers, and
// posting statistics.
type Server struct {
	echo       *echo.Echo
	pipeline   *usecase.Pipeline
	metrics    *usecase.MetricsRefresher
	repository ports.PostRepository
	logger     *slog.Logger
}

// NewServer wires the use cases into an echo instance.
func NewServer(pipeline *usecase.Pipeline, metrics *usecase.MetricsRefresher, repository ports.PostRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		pipeline:   pipeline,
		metrics:    metrics,
		repository: repository,
		logger:     logger,
	}

	e.GET("/healthz", s.health)
	e.POST("/run/post", s.runPost)
	e.POST("/run/metrics", s.runMetrics)
	e.GET("/stats", s.stats)

	return s
}

// Start blocks serving HTTP on the address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "techpost"})
}

func (s *Server) runPost(c echo.Context) error {
	kind := usecase.RunMorning
	if c.QueryParam("slot") == "evening" {
		kind = usecase.RunEvening
	}

	report, err := s.pipeline.Run(c.Request().Context(), kind)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run_id":   report.RunID,
		"stage":    string(report.Stage),
		"message":  report.Message,
		"posted":   report.Posted,
		"article":  report.ArticleTitle,
		"tweet_id": report.TweetID,
		"score":    report.Score,
		"cost_usd": report.CostUSD,
	})
}

func (s *Server) runMetrics(c echo.Context) error {
	updated, err := s.metrics.Run(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"updated_count": updated})
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.repository.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total_posts":         stats.TotalPosts,
		"total_cost_usd":      stats.TotalCostUSD,
		"avg_engagement_rate": stats.AvgEngagementRate,
	})
}
