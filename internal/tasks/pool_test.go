package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SubmitRuns(t *testing.T) {
	p := NewPool(context.Background(), 2)
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.True(t, p.Submit("job", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	p.Wait()
	assert.EqualValues(t, 5, ran.Load())
	assert.Zero(t, p.InFlight())
}

func TestPool_ErrorsAndPanicsAreContained(t *testing.T) {
	p := NewPool(context.Background(), 1)
	require.True(t, p.Submit("fails", func(ctx context.Context) error { return errors.New("boom") }))
	require.True(t, p.Submit("panics", func(ctx context.Context) error { panic("oops") }))
	var after atomic.Bool
	require.True(t, p.Submit("after", func(ctx context.Context) error {
		after.Store(true)
		return nil
	}))
	p.Wait()
	assert.True(t, after.Load())
}

func TestPool_RespectsConcurrencyLimit(t *testing.T) {
	p := NewPool(context.Background(), 2)
	var cur, peak atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 6; i++ {
		p.Submit("slow", func(ctx context.Context) error {
			n := cur.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			cur.Add(-1)
			return nil
		})
	}
	assert.Eventually(t, func() bool { return cur.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	p.Wait()
	assert.EqualValues(t, 2, peak.Load())
}

func TestPool_ClosedRejects(t *testing.T) {
	p := NewPool(context.Background(), 1)
	p.Close()
	assert.False(t, p.Submit("late", func(ctx context.Context) error { return nil }))
	assert.False(t, p.Submit("nil", nil))
	p.Wait()
}

func TestPool_CanceledBaseContextSkipsQueued(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.Submit("blocker", func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}))
	<-started
	var queuedRan atomic.Bool
	require.True(t, p.Submit("queued", func(ctx context.Context) error {
		queuedRan.Store(true)
		return nil
	}))
	cancel()
	assert.Eventually(t, func() bool { return p.InFlight() == 1 }, time.Second, 5*time.Millisecond)
	close(block)
	p.Wait()
	assert.False(t, queuedRan.Load())
}
