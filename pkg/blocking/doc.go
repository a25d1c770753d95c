/*
Package blocking offloads blocking calls from an event loop to an elastic pool of
OS-thread-pinned workers, and lets the caller abort work that is in flight.

# Overview

An event loop must never block. Work that does (file system calls, cgo, legacy
synchronous clients) is wrapped in a WorkItem and handed to a Pool. The loop gets back
three handles and keeps running:

  - CancelHandle: requests interruption of the item
  - event.Event: set once the result is available
  - event.ResultHolder: slot 0 holds the is-error flag, slot 1 the value or error

# Core Components

## Pool

  - Unbounded FIFO queue; Submit never blocks
  - Grows one worker at a time, up to MaxThreads
  - Workers retire on their own after IdleTimeout without work
  - Close rejects new work with types.ErrQueueClosed and drains what is queued

## Worker

Each worker goroutine is locked to its own OS thread for its whole life:

	Idle --dequeue--> Running --done--> Idle
	Idle --idle timeout / queue closed and empty--> Retired

A worker holds one item at a time. A target error or panic is written to the item's
result and never stops the worker.

## CancelHandle

The worker records its thread id in the handle before calling the target. Abort cancels
the target's context with cause types.ErrCancelled. Cancellation is cooperative: the
target stops at the next point where it checks ctx.Done().

# Sizing

Two atomic counters drive growth, no lock is taken:

  - threads: live workers, reserved with a compare-and-swap so it never passes MaxThreads
  - load: +1 per submission, -1 while a worker waits, restored if the wait times out

Submit starts a worker when load is positive (more queued work than idle workers) or
when no worker is alive. load is a heuristic and may be briefly off under races; it only
decides when to grow.

# Usage Examples

Low-level submission:

	pool, err := blocking.New(&blocking.Config{MaxThreads: 8, IdleTimeout: 30 * time.Second})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	ctl, done, result, err := pool.Spawn(func(ctx context.Context, args []any, _ map[string]any) (any, error) {
		return os.ReadFile(args[0].(string))
	}, []any{"/etc/hosts"}, nil)
	if err != nil {
		log.Fatal(err)
	}

	select {
	case <-done.Done():
	case <-time.After(time.Second):
		ctl.Abort()
		<-done.Done()
	}
	data, err := blocking.Unpack(result)

Typed helpers:

	n, err := blocking.Call(ctx, pool, func(ctx context.Context) (int, error) {
		return slowCount(ctx)
	})

	sizes, err := blocking.Map(ctx, pool, statSize, paths)
*/
package blocking
