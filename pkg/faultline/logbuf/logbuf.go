// Package logbuf is a bounded in-memory log accumulator implementing
// faultline.LogBuffer. Oldest lines are evicted to hold the byte budget;
// content is cumulative and survives event capture (the core never clears
// it between events).
package logbuf

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultMaxBytes is the default retained-content budget.
const DefaultMaxBytes = 64 * 1024

// Buffer is a bounded append-only line buffer. Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	lines    *list.List // of string, oldest at front
	bytes    int
	maxBytes int
}

// New returns a buffer retaining at most maxBytes of formatted lines.
// Non-positive maxBytes uses DefaultMaxBytes.
func New(maxBytes int) *Buffer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Buffer{
		lines:    list.New(),
		maxBytes: maxBytes,
	}
}

// Append adds one timestamped line, evicting the oldest lines when the
// budget is exceeded. A single oversized line is truncated to fit.
func (b *Buffer) Append(ts time.Time, line string) {
	formatted := fmt.Sprintf("%d %s\n", ts.UnixMilli(), line)
	if len(formatted) > b.maxBytes {
		formatted = formatted[:b.maxBytes]
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines.PushBack(formatted)
	b.bytes += len(formatted)
	for b.bytes > b.maxBytes {
		front := b.lines.Front()
		b.bytes -= len(front.Value.(string))
		b.lines.Remove(front)
	}
}

// Content returns the retained lines in append order, empty when nothing
// has been logged.
func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	sb.Grow(b.bytes)
	for e := b.lines.Front(); e != nil; e = e.Next() {
		sb.WriteString(e.Value.(string))
	}
	return sb.String()
}

// Clear discards all retained lines.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines.Init()
	b.bytes = 0
}
