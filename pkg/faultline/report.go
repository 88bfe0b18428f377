// report.go defines the canonical report and event data structures for faultline.

package faultline

import "time"

// EventType indicates how an event was raised.
type EventType string

const (
	// EventFatal indicates an unrecoverable incident such as a crash or panic.
	EventFatal EventType = "fatal"

	// EventNonFatal indicates a logged, recoverable incident.
	EventNonFatal EventType = "nonfatal"
)

// ReportType distinguishes how a report's session was captured.
type ReportType string

const (
	// ReportTypeManaged marks a report captured by the in-process runtime.
	ReportTypeManaged ReportType = "managed"

	// ReportTypeNative marks a report finalized from a separate native crash path.
	ReportTypeNative ReportType = "native"
)

// Policy controls whether, and which subset of, finalized reports are sent.
type Policy string

const (
	// PolicyDisabled suppresses sending entirely; finalized reports are discarded.
	PolicyDisabled Policy = "disabled"

	// PolicyManagedOnly sends managed reports and discards native ones.
	PolicyManagedOnly Policy = "managed_only"

	// PolicyAll sends every finalized report.
	PolicyAll Policy = "all"
)

// Frame is one stack frame of an exception or thread snapshot.
type Frame struct {
	// Function is the fully qualified function name.
	Function string `json:"function"`

	// File is the source file path, if known.
	File string `json:"file,omitempty"`

	// Line is the source line, if known.
	Line int `json:"line,omitempty"`
}

// ExceptionRecord is one link of an exception cause chain.
type ExceptionRecord struct {
	// Type categorizes the error (its Go type or a caller-supplied tag).
	Type string `json:"type"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Frames is the stack of the raising site, outermost call last.
	Frames []Frame `json:"frames,omitempty"`
}

// ThreadSnapshot captures one goroutine's state at event time.
type ThreadSnapshot struct {
	// Name identifies the goroutine (e.g. "goroutine 1 [running]").
	Name string `json:"name"`

	// Importance is the sampling importance assigned at capture time.
	Importance int `json:"importance"`

	// Frames is the goroutine's stack, innermost frame first.
	Frames []Frame `json:"frames,omitempty"`
}

// Attribute is one custom key/value pair attached to an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogRecord is the cumulative log-buffer content attached to an event.
type LogRecord struct {
	Content string `json:"content"`
}

// RuntimeState captures process metrics at event time.
type RuntimeState struct {
	// MemoryBytes is the current heap allocation in bytes.
	MemoryBytes int64 `json:"memory_bytes"`

	// GoroutineCount is the number of live goroutines.
	GoroutineCount int `json:"goroutine_count"`

	// UptimeMs is the process uptime in milliseconds.
	UptimeMs int64 `json:"uptime_ms"`
}

// Event is one captured fatal or nonfatal incident. Events are immutable
// values; every field is populated by DataCapture before persistence.
type Event struct {
	// Type tags the event fatal or nonfatal.
	Type EventType `json:"type"`

	// Timestamp is when the incident was raised.
	Timestamp time.Time `json:"timestamp"`

	// Exceptions is the cause chain, outermost error first, truncated at
	// maxChainedExceptionDepth links.
	Exceptions []ExceptionRecord `json:"exceptions"`

	// Threads holds the raising goroutine first, plus all live goroutines
	// when the event was captured with all threads included.
	Threads []ThreadSnapshot `json:"threads,omitempty"`

	// Log is the cumulative log-buffer content at capture time, or nil when
	// the buffer was empty. The buffer is not cleared after capture, so later
	// events in the same session include earlier events' lines too.
	Log *LogRecord `json:"log,omitempty"`

	// Attributes is the session's custom key/value pairs, sorted ascending
	// by key.
	Attributes []Attribute `json:"attributes,omitempty"`

	// Runtime is a snapshot of process metrics at capture time.
	Runtime *RuntimeState `json:"runtime,omitempty"`

	// Priority is true iff the event is fatal.
	Priority bool `json:"priority"`
}

// AppInfo describes the application the report belongs to.
type AppInfo struct {
	// Identifier is the application's bundle or package identifier.
	Identifier string `json:"identifier"`

	// Version is the human-facing version string.
	Version string `json:"version"`

	// BuildVersion is the build or VCS identifier.
	BuildVersion string `json:"build_version,omitempty"`
}

// SessionInfo describes the session a report covers.
type SessionInfo struct {
	// ID is the opaque session identifier.
	ID string `json:"id"`

	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at"`

	// Generator names the SDK that produced the report.
	Generator string `json:"generator"`

	// EndedAt is set when the session is finalized by startup recovery; nil
	// for sessions finalized by a fatal event or a native crash.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// UserID is the application-assigned user identifier, if set.
	UserID string `json:"user_id,omitempty"`
}

// FilePayload is one file bundled with a natively-captured report.
// The filename is the transport-assigned name, distinct from any name the
// file carried on disk.
type FilePayload struct {
	Filename string `json:"filename"`
	Contents []byte `json:"contents"`
}

// Report is the per-session aggregate destined for transport. Once a report
// is finalized its event list and attachments never change; mutation happens
// only through Store operations while the report is open.
type Report struct {
	// SDKVersion is the faultline version that produced the report.
	SDKVersion string `json:"sdk_version"`

	// Platform identifies the runtime platform (GOOS).
	Platform string `json:"platform"`

	// InstallationID is the stable per-install identifier.
	InstallationID string `json:"installation_id"`

	// Type distinguishes managed from native capture.
	Type ReportType `json:"report_type"`

	App     AppInfo     `json:"app"`
	Session SessionInfo `json:"session"`

	// Events is the captured event sequence in append order.
	Events []Event `json:"events,omitempty"`

	// NativeFiles is the file bundle attached at native finalization.
	NativeFiles []FilePayload `json:"native_files,omitempty"`

	// OrgID is attached at send time, never persisted.
	OrgID string `json:"org_id,omitempty"`
}

// WithOrganizationID returns a copy of the report carrying the organization
// identifier. The receiver is not modified.
func (r Report) WithOrganizationID(orgID string) Report {
	r.OrgID = orgID
	return r
}

// StoredReport pairs a finalized report with the session id it is keyed by.
// It is the unit the store loads and the sender transmits.
type StoredReport struct {
	SessionID string `json:"session_id"`
	Report    Report `json:"report"`
}
