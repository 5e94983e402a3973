// Package fanout runs groups of independent tasks and joins them without
// letting one task's failure cancel its siblings. Every task reports its own
// outcome; callers partition the results after the join.
package fanout

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrPanic wraps a recovered panic from a task.
var ErrPanic = errors.New("task panicked")

// Result holds the outcome of one mapped item.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item with at most width tasks in flight and
// returns one Result per item, in item order. A width <= 0 means unbounded.
func Map[T, R any](ctx context.Context, width int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	if width > 0 {
		g.SetLimit(width)
	}
	for i, item := range items {
		g.Go(func() error {
			results[i] = run(func() (R, error) { return fn(ctx, item) })
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Join runs heterogeneous tasks concurrently and returns their errors by index.
func Join(tasks ...func() error) []error {
	errs := make([]error, len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			errs[i] = run(func() (struct{}, error) { return struct{}{}, task() }).Err
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func run[R any](fn func() (R, error)) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()
	value, err := fn()
	return Result[R]{Value: value, Err: err}
}
