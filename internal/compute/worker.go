package compute

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// MaxInput bounds n for both operations so one request cannot pin a worker
// for minutes.
const MaxInput = 100_000

// ErrInputTooLarge is returned for n above MaxInput.
var ErrInputTooLarge = errors.New("input too large")

// Worker runs computations on background goroutines, at most limit at a time.
type Worker struct {
	sem *semaphore.Weighted
}

// NewWorker creates a worker pool. limit <= 0 means one slot per CPU.
func NewWorker(limit int) *Worker {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &Worker{sem: semaphore.NewWeighted(int64(limit))}
}

// Run computes op(n) on a pool goroutine and waits for the result. Waiting
// for a free slot or for the result is abandoned when ctx is done.
func (w *Worker) Run(ctx context.Context, op Op, n uint64) (*big.Int, error) {
	if n > MaxInput {
		return nil, fmt.Errorf("%s(%d): %w", op, n, ErrInputTooLarge)
	}
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	type result struct {
		v   *big.Int
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer w.sem.Release(1)
		v, err := Eval(op, n)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
