package blocking

import (
	"context"
	"sync/atomic"

	"github.com/jzx17/offload/pkg/types"
)

// CancelHandle is the token shared between a submitter and the worker running a work item.
//
// The worker stamps its OS thread id into the handle before invoking the target. Abort
// cancels the context handed to the target with cause types.ErrCancelled. Goroutines cannot
// be unwound from the outside, so a target only stops at the points where it checks
// ctx.Done(); a call blocked in a syscall or in cgo runs to completion and its result is
// reported as usual.
type CancelHandle struct {
	tid      atomic.Uint64
	aborted  atomic.Bool
	finished atomic.Bool

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newCancelHandle() *CancelHandle {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &CancelHandle{ctx: ctx, cancel: cancel}
}

// Abort requests interruption of the work item. It never blocks, may be called from any
// goroutine any number of times, and is a no-op once the item has finished.
func (h *CancelHandle) Abort() {
	if h.finished.Load() {
		return
	}
	h.aborted.Store(true)
	h.cancel(types.ErrCancelled)
}

// ThreadID returns the OS thread id of the worker that picked the item up, or 0 if no
// worker has started it yet.
func (h *CancelHandle) ThreadID() uint64 {
	return h.tid.Load()
}

// Aborted reports whether Abort took effect before the item finished
func (h *CancelHandle) Aborted() bool {
	return h.aborted.Load()
}

// Finished reports whether the item's result has been written
func (h *CancelHandle) Finished() bool {
	return h.finished.Load()
}

// Context returns the context passed to the target
func (h *CancelHandle) Context() context.Context {
	return h.ctx
}

func (h *CancelHandle) bind(tid uint64) {
	h.tid.Store(tid)
}

// finish makes the handle inert and releases the context.
func (h *CancelHandle) finish() {
	h.finished.Store(true)
	h.cancel(context.Canceled)
}
