package blocking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/offload/pkg/types"
)

func TestCall(t *testing.T) {
	pool := newTestPool(t, 4, time.Second)
	ctx := context.Background()

	t.Run("typed value", func(t *testing.T) {
		n, err := Call(ctx, pool, func(ctx context.Context) (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	})

	t.Run("nil interface value", func(t *testing.T) {
		v, err := Call(ctx, pool, func(ctx context.Context) (error, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Call(ctx, pool, func(ctx context.Context) (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("context cancellation aborts the target", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		started := make(chan struct{})
		var unwound atomic.Bool

		go func() {
			<-started
			cancel()
		}()

		_, err := Call(cctx, pool, func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			unwound.Store(true)
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, types.ErrCancelled)
		assert.True(t, unwound.Load(), "Call returned before the target unwound")
	})

	t.Run("closed pool", func(t *testing.T) {
		closed, err := New(&Config{MaxThreads: 1, IdleTimeout: time.Second})
		require.NoError(t, err)
		closed.Close()

		_, err = Call(ctx, closed, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		assert.ErrorIs(t, err, types.ErrQueueClosed)
	})
}

func TestCallTimeout(t *testing.T) {
	pool := newTestPool(t, 2, time.Second)
	ctx := context.Background()

	t.Run("completes in time", func(t *testing.T) {
		v, completed, err := CallTimeout(ctx, pool, time.Second, func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.True(t, completed)
		assert.Equal(t, "ok", v)
	})

	t.Run("deadline aborts", func(t *testing.T) {
		start := time.Now()
		v, completed, err := CallTimeout(ctx, pool, 20*time.Millisecond, func(ctx context.Context) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(3 * time.Second):
				return "late", nil
			}
		})
		require.NoError(t, err)
		assert.False(t, completed)
		assert.Empty(t, v)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("target error is reported", func(t *testing.T) {
		boom := errors.New("boom")
		_, completed, err := CallTimeout(ctx, pool, time.Second, func(ctx context.Context) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.True(t, completed)
	})
}

func TestMap(t *testing.T) {
	pool := newTestPool(t, 4, time.Second)
	ctx := context.Background()

	t.Run("preserves order", func(t *testing.T) {
		xs := []int{5, 1, 4, 2, 3}
		out, err := Map(ctx, pool, func(ctx context.Context, x int) (int, error) {
			time.Sleep(time.Duration(x) * time.Millisecond)
			return x * x, nil
		}, xs)
		require.NoError(t, err)
		assert.Equal(t, []int{25, 1, 16, 4, 9}, out)
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := Map(ctx, pool, func(ctx context.Context, x int) (int, error) {
			return x, nil
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("first failure aborts siblings", func(t *testing.T) {
		boom := errors.New("boom")
		var aborted atomic.Int32

		_, err := Map(ctx, pool, func(ctx context.Context, x int) (int, error) {
			if x == 0 {
				time.Sleep(5 * time.Millisecond)
				return 0, boom
			}
			select {
			case <-ctx.Done():
				aborted.Add(1)
				return 0, ctx.Err()
			case <-time.After(3 * time.Second):
				return x, nil
			}
		}, []int{0, 1, 2, 3})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int32(3), aborted.Load())
	})
}
