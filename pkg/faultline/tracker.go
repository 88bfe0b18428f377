// tracker.go coordinates session lifecycle events: it routes incidents
// through DataCapture into the Store and keeps the process-wide current
// session id.

package faultline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// TrackerOption configures a Tracker.
type TrackerOption func(*trackerConfig)

type trackerConfig struct {
	logs   LogBuffer
	clock  clock.Clock
	logger *zap.Logger
}

// WithLogBuffer sets the log buffer whose cumulative content is attached to
// captured events and receives Log calls.
func WithLogBuffer(logs LogBuffer) TrackerOption {
	return func(c *trackerConfig) {
		c.logs = logs
	}
}

// WithClock sets the time source used when a timestamp is not
// caller-supplied (Recover). Defaults to the wall clock.
func WithClock(clk clock.Clock) TrackerOption {
	return func(c *trackerConfig) {
		c.clock = clk
	}
}

// WithTrackerLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithTrackerLogger(logger *zap.Logger) TrackerOption {
	return func(c *trackerConfig) {
		c.logger = logger
	}
}

// Tracker owns the process-wide current session and the capture/persist
// path. Exactly one session is current at a time. Only BeginSession and
// EndSession write the current session id; capture calls read it at call
// time. Interleaving a session-boundary transition with an in-flight
// capture call is not serialized here; callers must guarantee mutual
// exclusion between boundary transitions and capture calls.
type Tracker struct {
	store    Store
	capture  *DataCapture
	metadata *Metadata
	logs     LogBuffer
	clock    clock.Clock
	logger   *zap.Logger

	current atomic.Value // string; "" when no session is active
}

// NewTracker wires a Tracker from the store, capture component, and the
// shared metadata it forwards SetCustomKey/SetUserID to.
func NewTracker(store Store, capture *DataCapture, metadata *Metadata, opts ...TrackerOption) *Tracker {
	cfg := &trackerConfig{
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &Tracker{
		store:    store,
		capture:  capture,
		metadata: metadata,
		logs:     cfg.logs,
		clock:    cfg.clock,
		logger:   cfg.logger,
	}
	t.current.Store("")
	return t
}

// BeginSession makes sessionID current and persists its open skeleton
// report.
func (t *Tracker) BeginSession(ctx context.Context, sessionID string, ts time.Time) error {
	t.current.Store(sessionID)

	report := t.capture.CaptureReport(sessionID, ts)
	if err := t.store.CreateOpenReport(ctx, report); err != nil {
		return err
	}
	t.logger.Debug("session opened", zap.String("session_id", sessionID))
	return nil
}

// EndSession clears the current session id. It does not finalize: the
// session's report stays open until a fatal event, an explicit native
// finalize, or a later startup recovery pass finalizes it.
func (t *Tracker) EndSession() {
	t.current.Store("")
}

// CurrentSessionID returns the current session id, empty when no session
// is active.
func (t *Tracker) CurrentSessionID() string {
	return t.current.Load().(string)
}

// Log forwards one line to the log buffer. A nil buffer drops the line.
func (t *Tracker) Log(ts time.Time, line string) {
	if t.logs != nil {
		t.logs.Append(ts, line)
	}
}

// SetCustomKey records a custom key/value pair, effective only for events
// captured after the call.
func (t *Tracker) SetCustomKey(key, value string) {
	t.metadata.SetCustomKey(key, value)
}

// SetUserID records the user id, effective only for events captured after
// the call. Use PersistUserID to push it into the current open report.
func (t *Tracker) SetUserID(id string) {
	t.metadata.SetUserID(id)
}

// RecordFatal captures a fatal event and persists it with high priority:
// the session's report is finalized and delivery-ready when the call
// returns.
func (t *Tracker) RecordFatal(ctx context.Context, err error, thread ThreadSnapshot, ts time.Time) error {
	return t.persistEvent(ctx, err, thread, EventFatal, ts)
}

// RecordNonFatal captures a nonfatal event and appends it to the current
// open report.
func (t *Tracker) RecordNonFatal(ctx context.Context, err error, thread ThreadSnapshot, ts time.Time) error {
	return t.persistEvent(ctx, err, thread, EventNonFatal, ts)
}

func (t *Tracker) persistEvent(ctx context.Context, err error, thread ThreadSnapshot, typ EventType, ts time.Time) error {
	highPriority := typ == EventFatal
	sessionID := t.CurrentSessionID()

	event := t.capture.CaptureEvent(err, thread, typ, ts, highPriority)
	if event.Log == nil {
		t.logger.Debug("no log data to include with this event")
	}

	return t.store.AppendEvent(ctx, event, sessionID, highPriority)
}

// PersistUserID pushes the current user id into the current session's open
// report.
func (t *Tracker) PersistUserID(ctx context.Context) error {
	return t.store.SetUserID(ctx, t.metadata.UserID(), t.CurrentSessionID())
}

// FinalizeWithAttachments merges a native file bundle into the session's
// report and promotes it to finalized. Absent payloads should already have
// been dropped by the bundling step; the bundle may be empty.
func (t *Tracker) FinalizeWithAttachments(ctx context.Context, sessionID string, files []FilePayload) error {
	return t.store.FinalizeWithAttachments(ctx, sessionID, files)
}

// FinalizeSessions promotes every open report except the current session's
// to finalized, recovering sessions whose owning process died without an
// explicit finalize. Call once at startup, after BeginSession.
func (t *Tracker) FinalizeSessions(ctx context.Context, ts time.Time) error {
	return t.store.FinalizeAllExcept(ctx, t.CurrentSessionID(), ts)
}

// RemoveAll deletes every stored report, open or finalized.
func (t *Tracker) RemoveAll(ctx context.Context) error {
	return t.store.DeleteAll(ctx)
}
