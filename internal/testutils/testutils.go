// Package testutils provides helpers shared by the offload tests
package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContext bundles a deadline context with ordered cleanup
type TestContext struct {
	t       *testing.T
	timeout time.Duration
	cleanup []func()
	mu      sync.Mutex
}

// NewTestContext creates new test context; cleanup runs when the test ends
func NewTestContext(t *testing.T, timeout time.Duration) *TestContext {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	tc := &TestContext{t: t, timeout: timeout}
	t.Cleanup(tc.Cleanup)
	return tc
}

// Context returns context with timeout
func (tc *TestContext) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
	tc.AddCleanup(cancel)
	return ctx
}

// AddCleanup adds cleanup function
func (tc *TestContext) AddCleanup(fn func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cleanup = append(tc.cleanup, fn)
}

// Cleanup executes cleanup functions in reverse order
func (tc *TestContext) Cleanup() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for i := len(tc.cleanup) - 1; i >= 0; i-- {
		tc.cleanup[i]()
	}
	tc.cleanup = nil
}

// WaitClosed fails the test if ch is not closed within timeout
func WaitClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for channel close", msgAndArgs...)
	}
}

// AssertNotClosed fails the test if ch is closed within d
func AssertNotClosed(t testing.TB, ch <-chan struct{}, d time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	select {
	case <-ch:
		assert.Fail(t, "channel closed unexpectedly", msgAndArgs...)
	case <-time.After(d):
	}
}

// Gauge tracks a concurrent level and the highest value it reached
type Gauge struct {
	cur atomic.Int64
	max atomic.Int64
}

// Inc raises the level and records a new maximum
func (g *Gauge) Inc() {
	n := g.cur.Add(1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			return
		}
	}
}

// Dec lowers the level
func (g *Gauge) Dec() {
	g.cur.Add(-1)
}

// Observe records v as a sample without changing the level
func (g *Gauge) Observe(v int64) {
	for {
		m := g.max.Load()
		if v <= m || g.max.CompareAndSwap(m, v) {
			return
		}
	}
}

// Current returns the current level
func (g *Gauge) Current() int64 {
	return g.cur.Load()
}

// Max returns the highest level observed
func (g *Gauge) Max() int64 {
	return g.max.Load()
}
