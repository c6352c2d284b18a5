package coordinator

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO of jobs drained by a single worker goroutine.
// A job pushed from the worker runs after the current one finishes.
type queue struct {
	mu     sync.Mutex
	jobs   []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newQueue() *queue {
	return &queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (q *queue) start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.run(ctx)
	}()
}

// stop drops pending jobs, waits for the running one and closes done.
func (q *queue) stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.jobs = nil
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	close(q.done)
}

// push appends job and reports whether it was accepted.
func (q *queue) push(job func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *queue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *queue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for ctx.Err() == nil {
			job, ok := q.pop()
			if !ok {
				break
			}
			job()
		}
	}
}

// do runs job on the worker and waits for it to finish. Cancelling ctx stops
// the wait, not the job.
func (q *queue) do(ctx context.Context, job func()) error {
	finished := make(chan struct{})
	if !q.push(func() {
		defer close(finished)
		job()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-q.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the worker and returns its result.
func call[T any](ctx context.Context, q *queue, fn func(context.Context) (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	if qerr := q.do(ctx, func() { v, err = fn(ctx) }); qerr != nil {
		var zero T
		return zero, qerr
	}
	return v, err
}
