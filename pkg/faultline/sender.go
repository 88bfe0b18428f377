// sender.go defines the Sender and Executor interfaces for report delivery.

package faultline

import "context"

// Sender transmits one fully-built report to a backend.
// Implementations must be safe for concurrent use.
type Sender interface {
	// Send begins transmitting the report and returns immediately. The
	// returned channel delivers exactly one value (nil on acknowledged
	// delivery, an error otherwise) and is then closed. Send must not
	// block the calling goroutine on network I/O.
	Send(ctx context.Context, report StoredReport) <-chan error
}

// Executor runs completion callbacks on an execution context the caller
// owns. Delivery completion handling is always dispatched through an
// Executor so that store bookkeeping never runs on a goroutine the sender
// owns.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) { f(fn) }
