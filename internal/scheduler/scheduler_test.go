package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"15m": 15 * time.Minute,
		"1H":  time.Hour,
		"1d":  24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "m", "0m", "-5m", "5x", "abc"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestNextTimes_AlignsToBoundary(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), 15*time.Minute, 0)
	now := time.Date(2025, 1, 2, 9, 7, 30, 0, time.UTC)
	wakeAt, wait := s.nextTimes(now)
	assert.Equal(t, time.Date(2025, 1, 2, 9, 15, 0, 0, time.UTC), wakeAt)
	assert.Equal(t, 7*time.Minute+30*time.Second, wait)

	onBoundary := time.Date(2025, 1, 2, 9, 15, 0, 0, time.UTC)
	wakeAt, _ = s.nextTimes(onBoundary)
	assert.Equal(t, time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC), wakeAt)
}

func TestNextTimes_WithOffset(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), time.Hour, 2*time.Minute)
	now := time.Date(2025, 1, 2, 9, 1, 0, 0, time.UTC)
	wakeAt, _ := s.nextTimes(now)
	assert.Equal(t, time.Date(2025, 1, 2, 9, 2, 0, 0, time.UTC), wakeAt)

	now = time.Date(2025, 1, 2, 9, 3, 0, 0, time.UTC)
	wakeAt, _ = s.nextTimes(now)
	assert.Equal(t, time.Date(2025, 1, 2, 10, 2, 0, 0, time.UTC), wakeAt)
}

func TestStart_RunsUntilWaitFails(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), time.Minute, 0)
	s.RunImmediately = true
	waits := 0
	s.wait = func(ctx context.Context, d time.Duration) bool {
		waits++
		return waits <= 3
	}
	runs := 0
	s.Start(func(ctx context.Context) { runs++ })
	assert.Equal(t, 4, runs)
	assert.Equal(t, 4, waits)
}

func TestStart_InvalidInterval(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), 0, 0)
	runs := 0
	s.Start(func(ctx context.Context) { runs++ })
	assert.Zero(t, runs)
}

func TestSleepCtx_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.False(t, sleepCtx(ctx, 0))
	assert.True(t, sleepCtx(context.Background(), 0))
}
