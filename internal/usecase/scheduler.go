package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

// Runner is the part of Pipeline the scheduler drives.
type Runner interface {
	Run(ctx context.Context) (domain.RunSummary, error)
}

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver ports.Scheduler
	runner Runner
	logger *slog.Logger
	mu     sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Trigger(ctx, trigger)
	})
}

// Trigger runs the pipeline once unless a run is already in progress, in
// which case the trigger is skipped. It reports whether a run happened.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) bool {
	if !s.mu.TryLock() {
		s.logger.Warn("run still in progress, trigger skipped", "trigger", trigger)
		return false
	}
	defer s.mu.Unlock()

	summary, err := s.runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled run failed", "run_id", summary.RunID, "error", err)
	}
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
