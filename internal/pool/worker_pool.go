// Package pool provides the fixed goroutine pool that runs index builds and
// probe queries off the caller's goroutine.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned when submitting to a closed pool.
	ErrClosed = errors.New("worker pool closed")

	// ErrBusy is returned by TrySubmit when the work queue is full.
	ErrBusy = errors.New("worker pool busy")
)

// WorkerPool manages a fixed pool of goroutines for background tasks.
type WorkerPool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// NewWorkerPool creates a worker pool with numWorkers goroutines.
// If numWorkers <= 0, runtime.GOMAXPROCS(0) workers are started.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	wp := &WorkerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2), // 2x buffer for pipelining
		stopCh:     make(chan struct{}),
	}

	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}

	return wp
}

// NumWorkers returns the number of worker goroutines.
func (wp *WorkerPool) NumWorkers() int { return wp.numWorkers }

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.stopCh:
			// Drain remaining work before exiting
			for {
				select {
				case task, ok := <-wp.workCh:
					if !ok {
						return
					}
					task()
				default:
					return
				}
			}
		case task, ok := <-wp.workCh:
			if !ok {
				return
			}
			task()
		}
	}
}

// Submit enqueues a task, blocking while the queue is full.
//
// Error conditions:
//   - ErrClosed if the pool is closed
//   - ctx.Err() if the context is done before the task is enqueued
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrClosed
	}

	select {
	case wp.workCh <- task:
		return nil
	case <-wp.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues a task without blocking. It returns ErrBusy when the
// queue is full.
func (wp *WorkerPool) TrySubmit(task func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrClosed
	}

	select {
	case wp.workCh <- task:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops accepting work, runs what is already queued and waits for the
// workers to exit. It is idempotent.
func (wp *WorkerPool) Close() {
	if !wp.closed.CompareAndSwap(false, true) {
		return
	}

	wp.submitMu.Lock()
	close(wp.stopCh)
	close(wp.workCh)
	wp.submitMu.Unlock()

	wp.wg.Wait()
}
