// collaborators.go defines the capability interfaces the core consumes:
// log buffer, thread snapshots, and identity.

package faultline

import "time"

// LogBuffer is an append-only text accumulator exposing its cumulative
// content. The core reads it at event capture time but never owns or
// clears it.
type LogBuffer interface {
	// Append adds one line to the buffer.
	Append(ts time.Time, line string)

	// Content returns the current cumulative content, empty when nothing
	// has been logged.
	Content() string

	// Clear discards all buffered content.
	Clear()
}

// ThreadSnapshotter acquires goroutine state for event capture.
type ThreadSnapshotter interface {
	// Current snapshots the calling goroutine.
	Current() ThreadSnapshot

	// All snapshots every live goroutine, each annotated with the given
	// sampling importance.
	All(importance int) []ThreadSnapshot
}

// IdentityProvider supplies stable session and installation identifiers.
type IdentityProvider interface {
	// SessionID mints a new unique session identifier.
	SessionID() string

	// InstallationID returns the stable per-install identifier.
	InstallationID() string
}
