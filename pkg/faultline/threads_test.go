package faultline

import (
	"strings"
	"testing"
	"time"
)

const sampleDump = `goroutine 1 [running]:
main.doWork(0x140000a2000, 0x5)
	/src/app/work.go:42 +0x1f
main.main()
	/src/app/main.go:10 +0x20

goroutine 18 [select]:
net/http.(*persistConn).readLoop(0x14000160480)
	/usr/local/go/src/net/http/transport.go:2205 +0xd4
`

func TestParseStackDump(t *testing.T) {
	snaps := parseStackDump(sampleDump)

	if len(snaps) != 2 {
		t.Fatalf("goroutine count = %d, want 2", len(snaps))
	}

	first := snaps[0]
	if first.Name != "goroutine 1 [running]" {
		t.Errorf("name = %q", first.Name)
	}
	if len(first.Frames) != 2 {
		t.Fatalf("frame count = %d, want 2", len(first.Frames))
	}
	if first.Frames[0].Function != "main.doWork" {
		t.Errorf("function = %q, want main.doWork (arguments stripped)", first.Frames[0].Function)
	}
	if first.Frames[0].File != "/src/app/work.go" || first.Frames[0].Line != 42 {
		t.Errorf("location = %s:%d, want /src/app/work.go:42", first.Frames[0].File, first.Frames[0].Line)
	}

	second := snaps[1]
	if second.Name != "goroutine 18 [select]" {
		t.Errorf("name = %q", second.Name)
	}
	if second.Frames[0].Function != "net/http.(*persistConn).readLoop" {
		t.Errorf("function = %q", second.Frames[0].Function)
	}
}

func TestSnapshotter_CurrentCapturesThisGoroutine(t *testing.T) {
	snap := NewThreadSnapshotter().Current()

	if !strings.HasPrefix(snap.Name, "goroutine ") {
		t.Errorf("name = %q, want goroutine header", snap.Name)
	}
	if len(snap.Frames) == 0 {
		t.Fatal("expected at least one frame")
	}

	var found bool
	for _, frame := range snap.Frames {
		if strings.Contains(frame.Function, "TestSnapshotter_CurrentCapturesThisGoroutine") {
			found = true
		}
	}
	if !found {
		t.Errorf("frames %v do not include the test function", snap.Frames)
	}
}

func TestSnapshotter_AllAnnotatesImportance(t *testing.T) {
	snaps := NewThreadSnapshotter().All(4)

	if len(snaps) == 0 {
		t.Fatal("expected at least one goroutine")
	}
	for _, snap := range snaps {
		if snap.Importance != 4 {
			t.Errorf("importance = %d, want 4", snap.Importance)
		}
	}
}

func TestCaptureRuntimeState(t *testing.T) {
	state := CaptureRuntimeState(time.Now().Add(-time.Second))

	if state.MemoryBytes <= 0 {
		t.Errorf("memory = %d, want positive", state.MemoryBytes)
	}
	if state.GoroutineCount <= 0 {
		t.Errorf("goroutines = %d, want positive", state.GoroutineCount)
	}
	if state.UptimeMs < 900 {
		t.Errorf("uptime = %dms, want >= ~1000", state.UptimeMs)
	}

	future := CaptureRuntimeState(time.Now().Add(time.Hour))
	if future.UptimeMs != 0 {
		t.Errorf("uptime with future start = %d, want clamped to 0", future.UptimeMs)
	}
}
