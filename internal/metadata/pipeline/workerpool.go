package pipeline

import (
	"context"
	"runtime"
	"sync"
)

// boundedPool is a trimmed adaptation of the teacher repo's
// pkg/workerpool: a fixed number of worker goroutines draining a task
// channel, used here to run one function per token and collect its result
// without letting an unbounded number of goroutines hit remote gateways at
// once.
type boundedPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// newBoundedPool starts workers workers, each reading from an internal task
// channel until it is closed.
func newBoundedPool(workers int) *boundedPool {
	if workers < 1 {
		workers = 1
	}
	p := &boundedPool{tasks: make(chan func())}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *boundedPool) submit(task func()) {
	p.tasks <- task
}

func (p *boundedPool) stop() {
	close(p.tasks)
	p.wg.Wait()
}

// poolSize mirrors spec.md's sizing rule: min(batchSize, 2*NumCPU+1).
func poolSize(batchSize int) int {
	max := 2*runtime.NumCPU() + 1
	if batchSize < max {
		return batchSize
	}
	return max
}

// runParallel resolves fn for every item in order, using a bounded pool of
// poolSize(len(items)) workers. Results are returned index-aligned with
// items, chunked into batches of chunkSize to bound burst concurrency
// against upstream gateways, matching the reference implementation's
// batched_parmap.
func runParallel[T any, R any](ctx context.Context, items []T, chunkSize int, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		pool := newBoundedPool(poolSize(len(batch)))
		for i, item := range batch {
			i, item := i, item
			pool.submit(func() {
				results[start+i] = fn(ctx, item)
			})
		}
		pool.stop()
	}
	return results
}
