// Package types defines core interfaces and types shared by the offload packages
package types

import (
	"context"
	"time"
)

// Target is a blocking callable offloaded to a worker thread.
//
// The context is cancelled with cause ErrCancelled when the work item is aborted;
// targets that can be interrupted should check ctx.Done() at their interruption points.
type Target func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// PoolState defines the lifecycle state of a pool
type PoolState int32

const (
	// StateRunning accepts submissions
	StateRunning PoolState = iota
	// StateClosed rejects submissions; queued work is still drained
	StateClosed
)

// String returns the string representation of PoolState
func (ps PoolState) String() string {
	switch ps {
	case StateRunning:
		return "Running"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Outcome classifies how a work item finished
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
	OutcomePanic     Outcome = "panic"
)

// PoolStats is a point-in-time view of a pool. Counters are read individually
// and may be mutually inconsistent under load.
type PoolStats struct {
	// Threads is the number of live worker threads
	Threads int

	// Running is the number of workers currently executing a target
	Running int

	// MaxThreads is the configured upper bound
	MaxThreads int

	// Queued is the number of items waiting in the queue
	Queued int

	// Load is the approximate growth signal (queued minus idle workers)
	Load int64

	// Spawned is the total number of workers started
	Spawned int64

	// Retired is the total number of workers that exited
	Retired int64

	// Completed is the number of items that returned a value
	Completed int64

	// Failed is the number of items that returned an error or panicked
	Failed int64

	// Cancelled is the number of items that unwound after an abort
	Cancelled int64

	// State is the pool lifecycle state
	State PoolState
}

// Metrics receives pool events. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordTaskDuration(pool string, outcome Outcome, d time.Duration)
	RecordTaskRejected(pool string, reason string)
	RecordThreads(pool string, live int)
	RecordQueueDepth(pool string, depth int)
}

// NopMetrics discards every event
type NopMetrics struct{}

func (NopMetrics) RecordTaskDuration(string, Outcome, time.Duration) {}
func (NopMetrics) RecordTaskRejected(string, string)                 {}
func (NopMetrics) RecordThreads(string, int)                         {}
func (NopMetrics) RecordQueueDepth(string, int)                      {}
