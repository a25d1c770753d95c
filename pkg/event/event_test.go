package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent(t *testing.T) {
	t.Run("set once", func(t *testing.T) {
		e := New()
		assert.False(t, e.IsSet())

		e.Set()
		e.Set()
		assert.True(t, e.IsSet())

		select {
		case <-e.Done():
		default:
			t.Fatal("done channel should be closed")
		}
	})

	t.Run("wait returns when set", func(t *testing.T) {
		e := New()
		go func() {
			time.Sleep(10 * time.Millisecond)
			e.Set()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, e.Wait(ctx))
	})

	t.Run("wait honours context", func(t *testing.T) {
		e := New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := e.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, e.IsSet())
	})

	t.Run("concurrent setters", func(t *testing.T) {
		e := New()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.Set()
			}()
		}
		wg.Wait()
		assert.True(t, e.IsSet())
	})
}

func TestResultHolder(t *testing.T) {
	t.Run("write once", func(t *testing.T) {
		r := NewResultHolder(2)
		require.Equal(t, 2, r.Len())

		require.NoError(t, r.Store(0, false))
		require.NoError(t, r.Store(1, 42))

		err := r.Store(1, 43)
		assert.True(t, errors.Is(err, ErrSlotTaken))

		v, ok := r.Load(1)
		assert.True(t, ok)
		assert.Equal(t, 42, v)
	})

	t.Run("unwritten slot", func(t *testing.T) {
		r := NewResultHolder(2)
		v, ok := r.Load(0)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("out of range", func(t *testing.T) {
		r := NewResultHolder(1)
		assert.Error(t, r.Store(1, "x"))
		assert.Error(t, r.Store(-1, "x"))
		_, ok := r.Load(5)
		assert.False(t, ok)
	})

	t.Run("fetch copies", func(t *testing.T) {
		r := NewResultHolder(2)
		require.NoError(t, r.Store(0, true))
		require.NoError(t, r.Store(1, "boom"))

		vals := r.Fetch()
		vals[1] = "changed"
		v, _ := r.Load(1)
		assert.Equal(t, "boom", v)
	})

	t.Run("writes visible after event", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			r := NewResultHolder(2)
			e := New()
			go func(n int) {
				_ = r.Store(0, false)
				_ = r.Store(1, n)
				e.Set()
			}(i)

			<-e.Done()
			flag, ok0 := r.Load(0)
			val, ok1 := r.Load(1)
			require.True(t, ok0)
			require.True(t, ok1)
			assert.Equal(t, false, flag)
			assert.Equal(t, i, val)
		}
	})
}
