package worker

import (
	"context"
	"sync"
)

// DefaultPoolSize bounds parallel work when no size is configured
const DefaultPoolSize = 4

// Pool runs batches of independent tasks with bounded parallelism.
// Results are reported per task index, so callers get their batch
// order back regardless of completion order.
type Pool struct {
	size int
}

// NewPool creates a pool running at most size tasks concurrently.
// size <= 0 falls back to DefaultPoolSize.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{size: size}
}

// Size returns the configured parallelism bound
func (p *Pool) Size() int {
	return p.size
}

// Run invokes fn for every index in [0, n) with at most Size calls in
// flight, and returns one error slot per index. One task's failure
// never blocks or cancels its siblings. After ctx is done, remaining
// tasks are not started; their slots carry ctx.Err().
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	if n <= 0 {
		return nil
	}

	errs := make([]error, n)
	jobs := make(chan int)

	workers := p.size
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				errs[i] = fn(ctx, i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return errs
}
