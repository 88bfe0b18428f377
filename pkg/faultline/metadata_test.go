package faultline

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMetadata_LastWriteWinsPerKey(t *testing.T) {
	m := NewMetadata()
	m.SetCustomKey("env", "staging")
	m.SetCustomKey("env", "production")

	if got := m.CustomKeys()["env"]; got != "production" {
		t.Errorf("env = %q, want production", got)
	}
}

func TestMetadata_SanitizesKeysAndValues(t *testing.T) {
	m := NewMetadata()
	m.SetCustomKey("  padded  ", "  value  ")

	keys := m.CustomKeys()
	if _, ok := keys["padded"]; !ok {
		t.Errorf("keys = %v, want trimmed key", keys)
	}
	if keys["padded"] != "value" {
		t.Errorf("value = %q, want trimmed", keys["padded"])
	}
}

func TestMetadata_TruncatesOversizedValues(t *testing.T) {
	m := NewMetadata()
	long := strings.Repeat("x", maxAttributeBytes+100)
	m.SetCustomKey("k", long)

	if got := m.CustomKeys()["k"]; len(got) != maxAttributeBytes {
		t.Errorf("value length = %d, want %d", len(got), maxAttributeBytes)
	}
}

func TestMetadata_TruncationKeepsValidUTF8(t *testing.T) {
	m := NewMetadata()
	// A 3-byte rune straddles the byte limit; truncation must back off to
	// the rune boundary instead of splitting it.
	long := strings.Repeat("x", maxAttributeBytes-1) + "日本"
	m.SetCustomKey("k", long)

	got := m.CustomKeys()["k"]
	if !utf8.ValidString(got) {
		t.Errorf("truncated value is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != maxAttributeBytes-1 {
		t.Errorf("value length = %d, want %d", len(got), maxAttributeBytes-1)
	}
}

func TestMetadata_EmptyKeyDropped(t *testing.T) {
	m := NewMetadata()
	m.SetCustomKey("   ", "value")

	if n := len(m.CustomKeys()); n != 0 {
		t.Errorf("key count = %d, want 0", n)
	}
}

func TestMetadata_CapsDistinctKeysButAllowsUpdates(t *testing.T) {
	m := NewMetadata()
	for i := 0; i < maxCustomAttributes; i++ {
		m.SetCustomKey(fmt.Sprintf("key%03d", i), "v")
	}

	m.SetCustomKey("overflow", "dropped")
	if _, ok := m.CustomKeys()["overflow"]; ok {
		t.Error("key beyond the cap must be dropped")
	}

	m.SetCustomKey("key000", "updated")
	if got := m.CustomKeys()["key000"]; got != "updated" {
		t.Errorf("existing key update = %q, want updated", got)
	}
}

func TestMetadata_UserID(t *testing.T) {
	m := NewMetadata()
	if m.UserID() != "" {
		t.Error("fresh metadata should have empty user id")
	}
	m.SetUserID(" user-1 ")
	if m.UserID() != "user-1" {
		t.Errorf("user id = %q, want user-1", m.UserID())
	}
}
