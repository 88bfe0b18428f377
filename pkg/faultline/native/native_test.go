package native

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBacked_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.bin")
	if err := os.WriteFile(path, []byte{0xca, 0xfe}, 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFileBacked("minidump", path)
	payload := f.Payload()
	if payload == nil {
		t.Fatal("payload = nil, want content")
	}
	if payload.Filename != "minidump" {
		t.Errorf("filename = %q, want the transport name, not the on-disk name", payload.Filename)
	}
	if string(payload.Contents) != "\xca\xfe" {
		t.Errorf("contents = %v", payload.Contents)
	}
}

func TestFileBacked_MissingFileIsAbsentNotError(t *testing.T) {
	f := NewFileBacked("minidump", filepath.Join(t.TempDir(), "nope.bin"))
	if f.Payload() != nil {
		t.Error("missing file should yield nil payload")
	}
}

func TestFileBacked_DirectoryIsAbsent(t *testing.T) {
	f := NewFileBacked("minidump", t.TempDir())
	if f.Payload() != nil {
		t.Error("directory should yield nil payload")
	}
}

func TestBytesBacked(t *testing.T) {
	full := NewBytesBacked("metadata", []byte("device info"))
	if payload := full.Payload(); payload == nil || string(payload.Contents) != "device info" {
		t.Errorf("payload = %+v", payload)
	}

	empty := NewBytesBacked("metadata", nil)
	if empty.Payload() != nil {
		t.Error("empty content should be absent")
	}
}

func TestBundle_SkipsAbsentIndividually(t *testing.T) {
	path := filepath.Join(t.TempDir(), "present.bin")
	if err := os.WriteFile(path, []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	bundle := Bundle([]SessionFile{
		NewFileBacked("present", path),
		NewFileBacked("missing", filepath.Join(t.TempDir(), "gone.bin")),
		NewBytesBacked("inline", []byte("mem")),
	})

	if len(bundle) != 2 {
		t.Fatalf("bundle size = %d, want 2 (absent file skipped)", len(bundle))
	}
	if bundle[0].Filename != "present" || bundle[1].Filename != "inline" {
		t.Errorf("bundle = %+v", bundle)
	}
}
