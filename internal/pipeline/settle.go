package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one parallel unit: a value or the
// reason it failed.
type Outcome[T any] struct {
	Value T
	Err   error
}

func (o Outcome[T]) OK() bool { return o.Err == nil }

// Settle runs fn for every index in [0, n) with at most limit calls in
// flight (limit <= 0 means unbounded) and waits for all of them. A failing
// unit never cancels its siblings. Each call gets its own timeout when
// timeout > 0. Outcomes are returned in index order.
func Settle[T any](ctx context.Context, n, limit int, timeout time.Duration, fn func(ctx context.Context, i int) (T, error)) []Outcome[T] {
	outcomes := make([]Outcome[T], n)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range n {
		g.Go(func() error {
			callCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			v, err := fn(callCtx, i)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
			return nil // failures are recorded, not propagated
		})
	}

	_ = g.Wait()
	return outcomes
}
