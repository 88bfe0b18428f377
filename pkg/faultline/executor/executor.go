// Package executor provides faultline.Executor implementations: a serial
// bounded-queue executor for production completion handling and an inline
// executor for tests.
package executor

import (
	"sync"
)

// Serial runs callbacks one at a time on a single owned goroutine, in
// submission order. It decouples delivery completion bookkeeping from the
// network goroutines that produce results.
type Serial struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// SerialOption configures a Serial executor.
type SerialOption func(*serialConfig)

type serialConfig struct {
	queueSize int
}

// WithQueueSize sets the maximum number of pending callbacks (default: 64).
// Execute blocks once the queue is full, applying backpressure instead of
// dropping completions.
func WithQueueSize(size int) SerialOption {
	return func(c *serialConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// NewSerial starts a serial executor.
func NewSerial(opts ...SerialOption) *Serial {
	cfg := &serialConfig{queueSize: 64}
	for _, opt := range opts {
		opt(cfg)
	}

	e := &Serial{
		queue: make(chan func(), cfg.queueSize),
		done:  make(chan struct{}),
	}
	e.wg.Add(1)
	go e.processLoop()
	return e
}

// processLoop drains the queue until Close, then runs what remains. The
// queue channel is never closed; sends race Close without panicking.
func (e *Serial) processLoop() {
	defer e.wg.Done()
	for {
		select {
		case fn := <-e.queue:
			fn()
		case <-e.done:
			for {
				select {
				case fn := <-e.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Execute enqueues fn. Blocks when the queue is full; silently drops fn
// after Close (a completion arriving after shutdown has nothing left to
// reconcile).
func (e *Serial) Execute(fn func()) {
	select {
	case <-e.done:
		return
	default:
	}

	select {
	case e.queue <- fn:
	case <-e.done:
	}
}

// Close stops the executor after draining queued callbacks.
func (e *Serial) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
	})
}

// Direct runs callbacks inline on the calling goroutine. It forfeits the
// completion-decoupling contract and is intended for tests.
type Direct struct{}

// Execute runs fn immediately.
func (Direct) Execute(fn func()) { fn() }
