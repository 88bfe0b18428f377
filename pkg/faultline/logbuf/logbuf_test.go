package logbuf

import (
	"strings"
	"testing"
	"time"

	"github.com/faultline-io/faultline/pkg/faultline"
)

var _ faultline.LogBuffer = (*Buffer)(nil)

func TestBuffer_ContentInAppendOrder(t *testing.T) {
	b := New(0)
	ts := time.UnixMilli(1700000000000)

	b.Append(ts, "first")
	b.Append(ts, "second")

	content := b.Content()
	if !strings.Contains(content, "first") || !strings.Contains(content, "second") {
		t.Fatalf("content = %q", content)
	}
	if strings.Index(content, "first") > strings.Index(content, "second") {
		t.Error("lines out of append order")
	}
	if !strings.Contains(content, "1700000000000") {
		t.Errorf("content %q missing timestamp", content)
	}
}

func TestBuffer_EmptyContent(t *testing.T) {
	if got := New(0).Content(); got != "" {
		t.Errorf("fresh buffer content = %q, want empty", got)
	}
}

func TestBuffer_EvictsOldestOverBudget(t *testing.T) {
	b := New(200)
	ts := time.Now()

	for i := 0; i < 50; i++ {
		b.Append(ts, strings.Repeat("x", 20))
	}

	content := b.Content()
	if len(content) > 200 {
		t.Errorf("content length = %d, exceeds budget 200", len(content))
	}
	if content == "" {
		t.Error("eviction should retain the newest lines, not everything")
	}
}

func TestBuffer_TruncatesOversizedLine(t *testing.T) {
	b := New(64)
	b.Append(time.Now(), strings.Repeat("y", 500))

	if got := len(b.Content()); got > 64 {
		t.Errorf("content length = %d, want <= 64", got)
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := New(0)
	b.Append(time.Now(), "line")
	b.Clear()

	if got := b.Content(); got != "" {
		t.Errorf("content after Clear = %q, want empty", got)
	}
}
