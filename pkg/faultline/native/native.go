// Package native bundles files produced by an out-of-process crash path
// (minidumps, binary images, device metadata) into report attachments.
// Sources are modeled as a tagged capability: a file either produces its
// payload or reports absence. Absence is never an error, and one missing
// file never aborts a bundle.
package native

import (
	"os"

	"github.com/samber/lo"

	"github.com/faultline-io/faultline/pkg/faultline"
)

// SessionFile is one candidate attachment for a natively-captured session.
type SessionFile interface {
	// Name is the transport-assigned filename carried in the payload,
	// distinct from any name the source had on disk.
	Name() string

	// Payload attempts to produce the file's byte content. A nil return
	// means the source is absent or unreadable; it is not an error.
	Payload() *faultline.FilePayload
}

// FileBacked is a SessionFile backed by a file currently on disk.
type FileBacked struct {
	transportName string
	path          string
}

// NewFileBacked wraps the file at path under the given transport filename.
func NewFileBacked(transportName, path string) *FileBacked {
	return &FileBacked{transportName: transportName, path: path}
}

// Name returns the transport filename.
func (f *FileBacked) Name() string { return f.transportName }

// Payload reads the file, returning nil when it is missing, unreadable, or
// not a regular file.
func (f *FileBacked) Payload() *faultline.FilePayload {
	info, err := os.Stat(f.path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	contents, err := os.ReadFile(f.path)
	if err != nil {
		return nil
	}
	return &faultline.FilePayload{Filename: f.transportName, Contents: contents}
}

// BytesBacked is a SessionFile holding its content in memory.
type BytesBacked struct {
	transportName string
	contents      []byte
}

// NewBytesBacked wraps in-memory content under the given transport
// filename.
func NewBytesBacked(transportName string, contents []byte) *BytesBacked {
	return &BytesBacked{transportName: transportName, contents: contents}
}

// Name returns the transport filename.
func (b *BytesBacked) Name() string { return b.transportName }

// Payload returns the content, or nil when empty.
func (b *BytesBacked) Payload() *faultline.FilePayload {
	if len(b.contents) == 0 {
		return nil
	}
	return &faultline.FilePayload{Filename: b.transportName, Contents: b.contents}
}

// Bundle resolves every session file, dropping absent ones individually.
// The result is ready to pass to Tracker.FinalizeWithAttachments.
func Bundle(files []SessionFile) []faultline.FilePayload {
	return lo.FilterMap(files, func(f SessionFile, _ int) (faultline.FilePayload, bool) {
		payload := f.Payload()
		if payload == nil {
			return faultline.FilePayload{}, false
		}
		return *payload, true
	})
}
