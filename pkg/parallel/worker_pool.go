package parallel

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu

	panicMu  sync.Mutex
	panicErr error // first recovered task panic
}

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a new worker pool with specified number of workers.
// A non-positive count uses GOMAXPROCS.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
	}

	pool.start()
	return pool, nil
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.panicMu.Lock()
					if wp.panicErr == nil {
						wp.panicErr = fmt.Errorf("task panic: %v", r)
					}
					wp.panicMu.Unlock()
				}
			}()
			task()
		}()
	}
}

// Submit adds a task to the worker pool.
// Returns false if the pool is closed, true if task was submitted.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	wp.taskQueue <- task
	return true
}

// Close shuts down the worker pool and waits for queued tasks to finish
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait closes the pool, waits for all submitted tasks and returns the first
// recovered task panic, if any.
func (wp *WorkerPool) Wait() error {
	wp.Close()
	wp.panicMu.Lock()
	defer wp.panicMu.Unlock()
	return wp.panicErr
}

// ForEach calls fn(worker, i) for every i in [0, n). Indexes are striped
// statically: worker w handles w, w+W, w+2W and so on, so per-worker
// accumulators merged in worker order give the same result on every run.
// Workers stop picking up indexes once ctx is done, and ForEach then returns
// ctx.Err().
func ForEach(ctx context.Context, workers, n int, fn func(worker, i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	pool, err := NewWorkerPool(workers)
	if err != nil {
		return err
	}

	for w := 0; w < workers; w++ {
		pool.Submit(func() {
			for i := w; i < n; i += workers {
				if ctx.Err() != nil {
					return
				}
				fn(w, i)
			}
		})
	}

	if err := pool.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
