// Package scheduler drives recurring pipeline runs with an hourly ticker.
package scheduler

import (
	"context"
	"time"

	"techpost/internal/ports"
)

// HourlyTicker fires the registered job once at the top of every hour.
// The job decides, from the civil time, which run to execute.
type HourlyTicker struct {
	stop chan struct{}
}

var _ ports.Scheduler = (*HourlyTicker)(nil)

// NewHourlyTicker builds an idle scheduler.
func NewHourlyTicker() *HourlyTicker {
	return &HourlyTicker{}
}

// Start launches the ticking goroutine. Calling Start twice is a no-op.
func (h *HourlyTicker) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || h.stop != nil {
		return nil
	}

	h.stop = make(chan struct{})
	go func() {
		// Align the first tick to the next top of the hour.
		now := time.Now()
		next := now.Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(next.Sub(now))
		defer timer.Stop()

		select {
		case t := <-timer.C:
			job(t)
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticking goroutine.
func (h *HourlyTicker) Stop(ctx context.Context) error {
	if h.stop == nil {
		return nil
	}
	close(h.stop)
	h.stop = nil
	return nil
}
