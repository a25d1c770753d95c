package blocking

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/jzx17/offload/pkg/event"
	"github.com/jzx17/offload/pkg/types"
)

// Result slot layout
const (
	slotIsError = 0
	slotValue   = 1
	resultSlots = 2
)

// WorkItem bundles a target, its arguments, a cancel handle and a completion sink.
// It is immutable once submitted and is consumed by exactly one worker.
type WorkItem struct {
	id     string
	target types.Target
	args   []any
	kwargs map[string]any

	done   *event.Event
	result *event.ResultHolder
	ctl    *CancelHandle
}

// NewWorkItem creates a work item along with the handles the submitter keeps
func NewWorkItem(target types.Target, args []any, kwargs map[string]any) (*WorkItem, *CancelHandle, *event.Event, *event.ResultHolder) {
	item := &WorkItem{
		id:     uuid.NewString(),
		target: target,
		args:   args,
		kwargs: kwargs,
		done:   event.New(),
		result: event.NewResultHolder(resultSlots),
		ctl:    newCancelHandle(),
	}
	return item, item.ctl, item.done, item.result
}

// ID returns the work item ID
func (it *WorkItem) ID() string {
	return it.id
}

// run executes the target on the calling worker thread and publishes the outcome.
// The event is set last, after both slots are written.
func (it *WorkItem) run(tid uint64) (types.Outcome, error) {
	it.ctl.bind(tid)

	value, err := it.invoke(tid)

	outcome := types.OutcomeOK
	switch {
	case err == nil:
		_ = it.result.Store(slotIsError, false)
		_ = it.result.Store(slotValue, value)
	default:
		var taskErr *types.TaskError
		switch {
		case it.ctl.Aborted() && errors.Is(err, context.Canceled):
			err = context.Cause(it.ctl.ctx)
			outcome = types.OutcomeCancelled
		case errors.As(err, &taskErr) && taskErr.Operation == "panic":
			outcome = types.OutcomePanic
		default:
			outcome = types.OutcomeError
		}
		_ = it.result.Store(slotIsError, true)
		_ = it.result.Store(slotValue, err)
	}

	it.ctl.finish()
	it.done.Set()
	return outcome, err
}

// invoke calls the target, converting a panic into a *types.TaskError
func (it *WorkItem) invoke(tid uint64) (value any, err error) {
	if it.target == nil {
		return nil, types.NewTaskError("invoke", it.id, types.ErrNilTarget)
	}

	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = fmt.Errorf("panic: %w", v)
			default:
				cause = fmt.Errorf("panic: %v", v)
			}

			value = nil
			err = types.NewTaskError("panic", it.id, cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("thread_id", tid)
		}
	}()

	return it.target(it.ctl.ctx, it.args, it.kwargs)
}
