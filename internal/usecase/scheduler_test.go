package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrismPipeline/internal/domain"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func (r *blockingRunner) Run(context.Context) (domain.RunSummary, error) {
	r.runs.Add(1)
	r.started <- struct{}{}
	<-r.release
	return domain.RunSummary{RunID: "r"}, nil
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestTriggerSkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(nil, runner, nil)

	done := make(chan bool)
	go func() { done <- s.Trigger(context.Background(), fixedNow) }()
	<-runner.started

	assert.False(t, s.Trigger(context.Background(), fixedNow.Add(time.Minute)))

	close(runner.release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestSchedulerDrivesRunner(t *testing.T) {
	t.Parallel()

	runner := &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	close(runner.release)
	driver := &manualDriver{}
	s := NewScheduler(driver, runner, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(fixedNow)
	assert.Equal(t, int32(1), runner.runs.Load())

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}
