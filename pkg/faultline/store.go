// store.go defines the Store interface for durable report persistence.

package faultline

import (
	"context"
	"errors"
	"time"
)

// ErrNoOpenReport is returned by Store.AppendEvent when no open report
// exists for the given session id.
var ErrNoOpenReport = errors.New("faultline: no open report for session")

// Store is durable, per-session keyed storage of report records.
// Records are either open (accepting appended events) or finalized
// (immutable, delivery-ready), and survive process restarts.
//
// Implementations must make operations on the same session id linearizable;
// operations on distinct session ids may proceed independently. Store
// methods perform blocking I/O; callers must not invoke them from a
// context where blocking is disallowed.
type Store interface {
	// CreateOpenReport establishes the durable open record for the report's
	// session. On I/O failure no partial record is left behind.
	CreateOpenReport(ctx context.Context, report Report) error

	// AppendEvent appends to the open report for sessionID, enforcing a
	// bounded retention count for nonfatal events (oldest dropped first).
	// When highPriority is true the report is also atomically promoted to
	// finalized before the call returns, so a fatal event is delivery-ready
	// even if the process dies immediately afterwards.
	// Returns ErrNoOpenReport when the session has no open record.
	AppendEvent(ctx context.Context, event Event, sessionID string, highPriority bool) error

	// SetUserID updates the open report's user id without touching other
	// fields. A missing record is a no-op, not an error.
	SetUserID(ctx context.Context, userID, sessionID string) error

	// FinalizeWithAttachments merges the file bundle into the session's
	// report and promotes it to finalized. Used for crashes captured by a
	// separate native signal path.
	FinalizeWithAttachments(ctx context.Context, sessionID string, files []FilePayload) error

	// FinalizeAllExcept promotes every open report except currentSessionID
	// to finalized. Invoked at startup to recover sessions whose owning
	// process died without an explicit finalize.
	FinalizeAllExcept(ctx context.Context, currentSessionID string, ts time.Time) error

	// LoadFinalizedReports returns a stable snapshot of all finalized
	// records. Relative order across sessions is arbitrary; each report's
	// internal event order is preserved.
	LoadFinalizedReports(ctx context.Context) ([]StoredReport, error)

	// DeleteFinalizedReport removes the finalized record for sessionID.
	// Idempotent: absence is not an error.
	DeleteFinalizedReport(ctx context.Context, sessionID string) error

	// DeleteAll removes every record, open or finalized.
	DeleteAll(ctx context.Context) error
}
