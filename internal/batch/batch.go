// Package batch runs I/O-bound tasks in fixed-size concurrent batches and
// collects every outcome, successful or not.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one task.
type Outcome[R any] struct {
	Value R
	Err   error
}

// Settle runs fn over inputs in batches of size. Tasks within a batch run
// concurrently; the next batch starts only after every task of the current
// one has returned, so at most size calls are in flight at any time.
//
// A failing or panicking task is recorded in its own slot and never cancels
// its siblings. The context is checked between batches: if it is done,
// Settle stops and returns the outcomes gathered so far with ctx.Err().
func Settle[T, R any](ctx context.Context, inputs []T, size int, fn func(ctx context.Context, index int, input T) (R, error)) ([]Outcome[R], error) {
	if size < 1 {
		size = 1
	}

	outcomes := make([]Outcome[R], len(inputs))
	for start := 0; start < len(inputs); start += size {
		if err := ctx.Err(); err != nil {
			return outcomes[:start], err
		}

		end := min(start+size, len(inputs))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						outcomes[i] = Outcome[R]{Err: fmt.Errorf("task panicked: %v", r)}
					}
				}()
				v, err := fn(ctx, i, inputs[i])
				outcomes[i] = Outcome[R]{Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	return outcomes, nil
}
