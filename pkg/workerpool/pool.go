// Package workerpool provides a bounded-concurrency FIFO task queue.
//
// Submitted actions run in submission order with at most maxConcurrency of
// them in flight. When a running action settles, the next queued task is
// dispatched immediately. Tasks that have not started yet can be dropped
// with ClearQueue; their futures are left pending forever.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanic wraps a panic raised by a submitted action.
var ErrPanic = errors.New("action panicked")

// Metrics receives queue depth updates. Implementations must be cheap and
// non-blocking; they are called with the pool lock held.
type Metrics interface {
	SetQueued(n int)
	SetRunning(n int)
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	MaxConcurrency int `json:"max_concurrency"`
	Queued         int `json:"queued"`
	Running        int `json:"running"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	Cleared        int `json:"cleared"`
}

type task[T any] struct {
	action func() (T, error)
	future *Future[T]
}

// Pool runs actions with bounded concurrency.
type Pool[T any] struct {
	maxConcurrency int
	metrics        Metrics

	mu        sync.Mutex
	queue     []task[T]
	running   int
	completed int
	failed    int
	cleared   int
	idle      *sync.Cond
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	metrics Metrics
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a pool that runs at most maxConcurrency actions at once.
// Values below 1 are treated as 1.
func New[T any](maxConcurrency int, opts ...Option) *Pool[T] {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool[T]{
		maxConcurrency: maxConcurrency,
		metrics:        o.metrics,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// MaxConcurrency returns the concurrency bound.
func (p *Pool[T]) MaxConcurrency() int { return p.maxConcurrency }

// Submit enqueues action and returns its future.
//
// The future resolves with the action's result, or rejects with the
// returned error. A panic inside the action rejects the future with an
// error wrapping ErrPanic.
func (p *Pool[T]) Submit(action func() (T, error)) *Future[T] {
	f := newFuture[T]()

	p.mu.Lock()
	p.queue = append(p.queue, task[T]{action: action, future: f})
	p.dispatchLocked()
	p.mu.Unlock()

	return f
}

// ClearQueue drops every task that has not been dispatched yet and returns
// how many were dropped. Running tasks are not affected. Futures of dropped
// tasks never settle.
func (p *Pool[T]) ClearQueue() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.queue)
	clear(p.queue)
	p.queue = p.queue[:0]
	p.cleared += n
	p.reportLocked()
	if p.running == 0 {
		p.idle.Broadcast()
	}
	return n
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		MaxConcurrency: p.maxConcurrency,
		Queued:         len(p.queue),
		Running:        p.running,
		Completed:      p.completed,
		Failed:         p.failed,
		Cleared:        p.cleared,
	}
}

// Wait blocks until no task is running or queued, or ctx is done.
func (p *Pool[T]) Wait(ctx context.Context) error {
	// wake the loop below when ctx ends so it can return
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.idle.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.running > 0 || len(p.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.idle.Wait()
	}
	return nil
}

// dispatchLocked starts queued tasks while slots are free. p.mu must be held.
func (p *Pool[T]) dispatchLocked() {
	for p.running < p.maxConcurrency && len(p.queue) > 0 {
		t := p.queue[0]
		p.queue[0] = task[T]{}
		p.queue = p.queue[1:]
		p.running++
		go p.run(t)
	}
	p.reportLocked()
}

func (p *Pool[T]) run(t task[T]) {
	value, err := invoke(t.action)

	p.mu.Lock()
	p.running--
	if err != nil {
		p.failed++
	} else {
		p.completed++
	}
	p.dispatchLocked()
	if p.running == 0 && len(p.queue) == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()

	t.future.settle(value, err)
}

func (p *Pool[T]) reportLocked() {
	if p.metrics == nil {
		return
	}
	p.metrics.SetQueued(len(p.queue))
	p.metrics.SetRunning(p.running)
}

func invoke[T any](action func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return action()
}
