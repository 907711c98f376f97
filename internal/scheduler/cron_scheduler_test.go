package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCronScheduler(t *testing.T) {
	t.Run("InvalidExpression", func(t *testing.T) {
		s := NewCronScheduler(zaptest.NewLogger(t))
		err := s.Schedule("every now and then", func(ctx context.Context) error { return nil })
		assert.Error(t, err)
		assert.True(t, s.Next().IsZero())
	})

	t.Run("SinglePass", func(t *testing.T) {
		s := NewCronScheduler(zaptest.NewLogger(t))
		require.NoError(t, s.Schedule("@every 1h", func(ctx context.Context) error { return nil }))
		err := s.Schedule("@every 1h", func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrAlreadyScheduled)
	})

	t.Run("RunsPasses", func(t *testing.T) {
		s := NewCronScheduler(zaptest.NewLogger(t))

		var runs atomic.Int32
		passErr := errors.New("catalog unavailable")
		require.NoError(t, s.Schedule("* * * * * *", func(ctx context.Context) error {
			runs.Add(1)
			return passErr
		}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.Start(ctx)
		defer s.Stop()

		assert.False(t, s.Next().IsZero())
		require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

		info := s.LastRun()
		assert.GreaterOrEqual(t, info.Count, 1)
		assert.ErrorIs(t, info.Err, passErr)
		assert.False(t, info.Finished.IsZero())
	})

	t.Run("SkipsOverlappingPasses", func(t *testing.T) {
		s := NewCronScheduler(zaptest.NewLogger(t))

		var running, maxRunning, runs atomic.Int32
		require.NoError(t, s.Schedule("* * * * * *", func(ctx context.Context) error {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			runs.Add(1)
			time.Sleep(2500 * time.Millisecond)
			return nil
		}))

		s.Start(context.Background())
		time.Sleep(4 * time.Second)
		s.Stop()

		assert.Equal(t, int32(1), maxRunning.Load())
		assert.LessOrEqual(t, runs.Load(), int32(2))
	})

	t.Run("CancelledContextSkipsPass", func(t *testing.T) {
		s := NewCronScheduler(zaptest.NewLogger(t))

		var runs atomic.Int32
		require.NoError(t, s.Schedule("* * * * * *", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s.Start(ctx)
		time.Sleep(1500 * time.Millisecond)
		s.Stop()

		assert.Zero(t, runs.Load())
		assert.Zero(t, s.LastRun().Count)
	})
}
