// recover.go provides the Recover helper for recording panics as fatal
// events. Use it in HTTP handlers, goroutines, or other code that must not
// crash the process.

package faultline

import (
	"context"
	"fmt"
)

// Recover captures a panic, records it as a fatal event on the current
// session, and returns the recovered value. Unlike a bare recover it leaves
// a durable, delivery-ready report behind; it does NOT re-panic.
//
// Recover must be deferred directly, not called from inside another
// deferred function:
//
//	func handler(ctx context.Context) {
//	    defer faultline.Recover(ctx, tracker)
//	    // code that might panic
//	}
func Recover(ctx context.Context, tracker *Tracker) any {
	r := recover()
	if r == nil {
		return nil
	}

	thread := tracker.capture.snapshotter.Current()
	err := panicError{value: r}

	// Record the event; a persist failure must not affect the caller.
	_ = tracker.RecordFatal(ctx, err, thread, tracker.clock.Now())

	return r
}

// panicError adapts a recovered panic value to the error interface.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	if e.value == nil {
		return "panic: <nil>"
	}
	if err, ok := e.value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", e.value)
}
