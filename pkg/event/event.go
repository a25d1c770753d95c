// Package event provides the one-shot completion primitives a blocking pool signals into.
//
// An Event is set at most once and is observed by any number of waiters. A ResultHolder
// is a fixed-size container of write-once slots. Producers fill the slots before setting
// the event; because Set closes a channel, every slot write that happened before Set is
// visible to a goroutine that observed the event as set.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSlotTaken is returned when a ResultHolder slot is written twice
var ErrSlotTaken = errors.New("result slot already written")

// Event is a one-shot signal
type Event struct {
	once sync.Once
	ch   chan struct{}
}

// New creates an unset event
func New() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set signals the event. Calls after the first are no-ops.
func (e *Event) Set() {
	e.once.Do(func() {
		close(e.ch)
	})
}

// IsSet reports whether the event has been signalled
func (e *Event) IsSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the event is set
func (e *Event) Done() <-chan struct{} {
	return e.ch
}

// Wait blocks until the event is set or ctx is done
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResultHolder is a fixed-size set of write-once slots
type ResultHolder struct {
	mu    sync.Mutex
	vals  []any
	taken []bool
}

// NewResultHolder creates a holder with n slots
func NewResultHolder(n int) *ResultHolder {
	return &ResultHolder{
		vals:  make([]any, n),
		taken: make([]bool, n),
	}
}

// Len returns the number of slots
func (r *ResultHolder) Len() int {
	return len(r.vals)
}

// Store writes v into slot i
func (r *ResultHolder) Store(i int, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.vals) {
		return fmt.Errorf("slot %d out of range [0,%d)", i, len(r.vals))
	}
	if r.taken[i] {
		return fmt.Errorf("slot %d: %w", i, ErrSlotTaken)
	}
	r.vals[i] = v
	r.taken[i] = true
	return nil
}

// Load returns slot i and whether it has been written
func (r *ResultHolder) Load(i int) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.vals) {
		return nil, false
	}
	return r.vals[i], r.taken[i]
}

// Fetch returns a copy of all slots
func (r *ResultHolder) Fetch() []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]any, len(r.vals))
	copy(out, r.vals)
	return out
}
