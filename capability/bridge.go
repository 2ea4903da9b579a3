package capability

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Gather runs every fn concurrently and waits for all of them to finish,
// returning their results in declaration order. No fn is cancelled because a
// sibling failed: callers inspect the full result set only after every
// in-flight computation has drained.
func Gather(ctx context.Context, fns ...func(context.Context) error) []error {
	errs := make([]error, len(fns))
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	// Errors are collected per slot; Wait only synchronizes.
	_ = g.Wait()
	return errs
}

// Pool is the single adapter for running unavoidably-blocking legacy calls
// off the cooperative path. Calls are admitted onto a bounded set of workers;
// admission respects context cancellation, but an admitted call always runs
// to completion.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a Pool admitting at most size concurrent calls.
// A non-positive size panics with a ContractError-style misuse message.
func NewPool(size int) *Pool {
	if size <= 0 {
		panic("capability: pool size must be positive")
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn on the pool and returns its error. Blocks until a worker slot
// is available or ctx is done.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// DoValue runs fn on the pool and returns its result.
func DoValue[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer p.sem.Release(1)
	return fn()
}
