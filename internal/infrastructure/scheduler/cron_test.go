package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	_, err := NewCronScheduler("every morning", nil, nil)
	assert.Error(t, err)
}

func TestNextHonoursLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CST", -6*60*60)
	s, err := NewCronScheduler("0 6 * * *", loc, nil)
	require.NoError(t, err)

	now := time.Date(2025, time.September, 16, 12, 0, 0, 0, time.UTC) // 06:00 CST
	next := s.Next(now)
	assert.True(t, next.Equal(time.Date(2025, time.September, 17, 6, 0, 0, 0, loc)), next)
}

func TestStartStopIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("@hourly", nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background(), func(time.Time) {}))
	require.NoError(t, s.Start(context.Background(), func(time.Time) {}))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background(), nil))
}
