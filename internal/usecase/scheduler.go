package usecase

import (
	"context"
	"log/slog"
	"time"

	"techpost/internal/ports"
)

// JobRunner wires the ticking driver to the pipeline runs and the metrics
// refresh. The driver fires once per hour; the runner dispatches by the
// civil-time hour so a deployment in any region keeps the same schedule.
type JobRunner struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	metrics  *MetricsRefresher
	location *time.Location

	morningHour int
	eveningHour int
	metricsHour int
	logger      *slog.Logger
}

// NewJobRunner builds the dispatching runner.
func NewJobRunner(driver ports.Scheduler, pipeline *Pipeline, metrics *MetricsRefresher, location *time.Location, morningHour, eveningHour, metricsHour int, logger *slog.Logger) *JobRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &JobRunner{
		driver:      driver,
		pipeline:    pipeline,
		metrics:     metrics,
		location:    location,
		morningHour: morningHour,
		eveningHour: eveningHour,
		metricsHour: metricsHour,
		logger:      logger,
	}
}

// Start registers the dispatch job with the driver.
func (r *JobRunner) Start(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Start(ctx, func(trigger time.Time) {
		r.dispatch(ctx, trigger.In(r.location))
	})
}

// Stop tears down the underlying driver.
func (r *JobRunner) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Stop(ctx)
}

func (r *JobRunner) dispatch(ctx context.Context, local time.Time) {
	switch local.Hour() {
	case r.morningHour:
		if _, err := r.pipeline.Run(ctx, RunMorning); err != nil {
			r.logger.Error("morning run failed", "error", err)
		}
	case r.eveningHour:
		if _, err := r.pipeline.Run(ctx, RunEvening); err != nil {
			r.logger.Error("evening run failed", "error", err)
		}
	case r.metricsHour:
		if r.metrics == nil {
			return
		}
		if _, err := r.metrics.Run(ctx); err != nil {
			r.logger.Error("metrics refresh failed", "error", err)
		}
	}
}
