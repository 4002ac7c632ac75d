package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PrismPipeline/internal/ports"
)

// CronScheduler triggers jobs on a standard five-field cron expression.
type CronScheduler struct {
	expr     string
	schedule cron.Schedule
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates expr and binds it to loc (UTC when nil).
func NewCronScheduler(expr string, loc *time.Location, logger *slog.Logger) (*CronScheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{expr: expr, schedule: schedule, location: loc, logger: logger}, nil
}

// Next reports the first trigger after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	return c.schedule.Next(t.In(c.location))
}

// Start registers job and begins the cron loop; it stops when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	c.cron = cron.New(cron.WithLocation(c.location))
	c.cron.Schedule(c.schedule, cron.FuncJob(func() {
		job(time.Now().In(c.location))
	}))
	c.cron.Start()
	c.logger.Info("scheduler started", "cron", c.expr, "next", c.Next(time.Now()))

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	running := c.cron
	c.cron = nil
	c.mu.Unlock()

	if running == nil {
		return nil
	}

	select {
	case <-running.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
