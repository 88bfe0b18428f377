// capture.go transforms raw incidents into immutable Event values and
// builds the skeleton report that opens a session. Pure and non-blocking:
// no I/O, no failure modes. Optional fields are omitted when their source
// is empty.

package faultline

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/samber/lo"
)

const (
	// maxChainedExceptionDepth caps the cause chain walked per event.
	// Deeper causes are silently dropped.
	maxChainedExceptionDepth = 8

	// eventThreadImportance is the sampling importance assigned to
	// non-raising goroutines when all threads are included.
	eventThreadImportance = 4
)

// DataCapture builds report skeletons and events from raw incident data.
// It reads shared session state (metadata, log buffer) at call time but
// performs no I/O and never fails.
type DataCapture struct {
	app         AppInfo
	identity    IdentityProvider
	metadata    *Metadata
	logs        LogBuffer
	snapshotter ThreadSnapshotter
	startTime   time.Time
}

// NewDataCapture wires a DataCapture from its collaborators. logs may be
// nil, in which case events carry no log attachment.
func NewDataCapture(app AppInfo, identity IdentityProvider, metadata *Metadata, logs LogBuffer, snapshotter ThreadSnapshotter) *DataCapture {
	if snapshotter == nil {
		snapshotter = NewThreadSnapshotter()
	}
	return &DataCapture{
		app:         app,
		identity:    identity,
		metadata:    metadata,
		logs:        logs,
		snapshotter: snapshotter,
		startTime:   time.Now(),
	}
}

// CaptureReport builds the open skeleton report for a new session.
func (c *DataCapture) CaptureReport(sessionID string, ts time.Time) Report {
	return Report{
		SDKVersion:     Version,
		Platform:       runtime.GOOS,
		InstallationID: c.identity.InstallationID(),
		Type:           ReportTypeManaged,
		App:            c.app,
		Session: SessionInfo{
			ID:        sessionID,
			StartedAt: ts,
			Generator: "faultline/" + Version,
		},
	}
}

// CaptureEvent builds an immutable event from a raised incident. The cause
// chain is walked through errors.Unwrap to at most maxChainedExceptionDepth
// links. The raising thread always leads the snapshot list; when
// includeAllThreads is set, every live goroutine follows at
// eventThreadImportance. The cumulative log buffer is attached when
// non-empty and is not cleared, so later events in the same session carry
// earlier events' lines too.
func (c *DataCapture) CaptureEvent(err error, thread ThreadSnapshot, typ EventType, ts time.Time, includeAllThreads bool) Event {
	event := Event{
		Type:       typ,
		Timestamp:  ts,
		Exceptions: captureChain(err),
		Threads:    []ThreadSnapshot{thread},
		Attributes: sortedAttributes(c.metadata.CustomKeys()),
		Runtime:    CaptureRuntimeState(c.startTime),
		Priority:   typ == EventFatal,
	}

	if includeAllThreads {
		event.Threads = append(event.Threads, c.snapshotter.All(eventThreadImportance)...)
	}

	if c.logs != nil {
		if content := c.logs.Content(); content != "" {
			event.Log = &LogRecord{Content: content}
		}
	}

	return event
}

// captureChain walks the error's cause chain, outermost first, up to the
// depth cap.
func captureChain(err error) []ExceptionRecord {
	var chain []ExceptionRecord
	for err != nil && len(chain) < maxChainedExceptionDepth {
		chain = append(chain, ExceptionRecord{
			Type:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		})
		err = errors.Unwrap(err)
	}
	return chain
}

// sortedAttributes converts the key/value map into a list sorted strictly
// ascending by key, so event payloads are reproducible regardless of
// insertion order. Empty input yields nil.
func sortedAttributes(keys map[string]string) []Attribute {
	if len(keys) == 0 {
		return nil
	}
	attrs := lo.MapToSlice(keys, func(k, v string) Attribute {
		return Attribute{Key: k, Value: v}
	})
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
	return attrs
}
