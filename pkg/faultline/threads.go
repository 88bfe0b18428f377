// threads.go acquires goroutine snapshots and process runtime state by
// parsing the runtime's stack dumps.

package faultline

import (
	"runtime"
	"strconv"
	"strings"
	"time"
)

// runtimeSnapshotter is the default ThreadSnapshotter, backed by
// runtime.Stack.
type runtimeSnapshotter struct{}

// NewThreadSnapshotter returns a ThreadSnapshotter that parses the Go
// runtime's textual stack dumps. It allocates only at snapshot time and is
// safe to call from a panicking goroutine.
func NewThreadSnapshotter() ThreadSnapshotter {
	return runtimeSnapshotter{}
}

// Current snapshots the calling goroutine.
func (runtimeSnapshotter) Current() ThreadSnapshot {
	snaps := parseStackDump(stackDump(false))
	if len(snaps) == 0 {
		return ThreadSnapshot{Name: "goroutine"}
	}
	return snaps[0]
}

// All snapshots every live goroutine at the given importance.
func (runtimeSnapshotter) All(importance int) []ThreadSnapshot {
	snaps := parseStackDump(stackDump(true))
	for i := range snaps {
		snaps[i].Importance = importance
	}
	return snaps
}

// stackDump grows the buffer until the dump fits, like runtime/debug.Stack.
func stackDump(all bool) string {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, all)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// parseStackDump converts runtime.Stack output into thread snapshots.
// Each goroutine block opens with a "goroutine N [state]:" header followed
// by alternating function and file:line lines.
func parseStackDump(dump string) []ThreadSnapshot {
	var snaps []ThreadSnapshot
	var cur *ThreadSnapshot

	for _, line := range strings.Split(dump, "\n") {
		if strings.HasPrefix(line, "goroutine ") {
			snaps = append(snaps, ThreadSnapshot{Name: strings.TrimSuffix(line, ":")})
			cur = &snaps[len(snaps)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if strings.HasPrefix(line, "\t") {
			file, ln := parseFileLine(line)
			if len(cur.Frames) > 0 {
				last := &cur.Frames[len(cur.Frames)-1]
				if last.File == "" {
					last.File = file
					last.Line = ln
				}
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			cur = nil
			continue
		}
		// "created by ..." trailers name the spawner, not a frame.
		if strings.HasPrefix(line, "created by ") {
			continue
		}
		cur.Frames = append(cur.Frames, Frame{Function: trimCallSite(line)})
	}

	return snaps
}

// trimCallSite strips the argument list from a function line such as
// "main.doWork(0x1234, 0x5)".
func trimCallSite(line string) string {
	if idx := strings.Index(line, "("); idx > 0 {
		return line[:idx]
	}
	return line
}

// parseFileLine splits a "\t/path/file.go:42 +0x1f" line.
func parseFileLine(line string) (string, int) {
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, " "); idx > 0 {
		line = line[:idx]
	}
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return line, 0
	}
	n, err := strconv.Atoi(line[colon+1:])
	if err != nil {
		return line, 0
	}
	return line[:colon], n
}

// CaptureRuntimeState captures process metrics at the current moment.
// The startTime parameter is used to calculate process uptime.
func CaptureRuntimeState(startTime time.Time) *RuntimeState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return &RuntimeState{
		MemoryBytes:    int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
	}
}
