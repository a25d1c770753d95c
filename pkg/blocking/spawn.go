package blocking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jzx17/offload/pkg/event"
	"github.com/jzx17/offload/pkg/types"
)

// ErrResultPending is returned by Unpack when the result has not been written yet
var ErrResultPending = errors.New("blocking result not yet available")

// Unpack decodes a completed result holder into the target's value or error
func Unpack(result *event.ResultHolder) (any, error) {
	flag, ok := result.Load(slotIsError)
	if !ok {
		return nil, ErrResultPending
	}
	value, _ := result.Load(slotValue)

	if isErr, _ := flag.(bool); isErr {
		err, ok := value.(error)
		if !ok {
			err = fmt.Errorf("blocking target failed: %v", value)
		}
		return nil, err
	}
	return value, nil
}

// Call runs fn on the pool and waits for it. If ctx is done first, the work item is
// aborted and Call keeps waiting until the worker has unwound, so fn never outlives the
// call. The returned error is then types.ErrCancelled unless fn finished regardless.
func Call[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	target := func(ctx context.Context, _ []any, _ map[string]any) (any, error) {
		return fn(ctx)
	}
	ctl, done, result, err := p.Spawn(target, nil, nil)
	if err != nil {
		return zero, err
	}

	select {
	case <-done.Done():
	case <-ctx.Done():
		ctl.Abort()
		<-done.Done()
	}

	value, err := Unpack(result)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	out, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected blocking result type %T", value)
	}
	return out, nil
}

// CallTimeout is Call bounded by d. completed is false when the deadline aborted fn.
func CallTimeout[T any](ctx context.Context, p *Pool, d time.Duration, fn func(ctx context.Context) (T, error)) (value T, completed bool, err error) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	value, err = Call(tctx, p, fn)
	if types.IsCancelled(err) && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, false, nil
	}
	return value, !types.IsCancelled(err), err
}

// Map runs fn over xs on the pool and returns the results in input order. The first
// failure aborts the items still running.
func Map[T, R any](ctx context.Context, p *Pool, fn func(ctx context.Context, x T) (R, error), xs []T) ([]R, error) {
	out := make([]R, len(xs))
	g, gctx := errgroup.WithContext(ctx)

	for i, x := range xs {
		g.Go(func() error {
			v, err := Call(gctx, p, func(ctx context.Context) (R, error) {
				return fn(ctx, x)
			})
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
