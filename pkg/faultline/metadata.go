// metadata.go holds per-session user metadata: custom keys and user id,
// last-write-wins, with size sanitization so oversized values never reach
// the durable store.

package faultline

import (
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// maxCustomAttributes bounds the number of distinct custom keys.
	maxCustomAttributes = 64

	// maxAttributeBytes bounds the length of each key and each value.
	maxAttributeBytes = 1024
)

// Metadata is the process-wide user-metadata store: custom key/value pairs
// and a user id, last-write-wins per key. Safe for concurrent use.
type Metadata struct {
	mu     sync.RWMutex
	keys   map[string]string
	userID string
}

// NewMetadata returns an empty metadata store.
func NewMetadata() *Metadata {
	return &Metadata{keys: make(map[string]string)}
}

// SetCustomKey records a key/value pair. Keys and values are trimmed and
// truncated at maxAttributeBytes. Once maxCustomAttributes distinct keys
// exist, writes to new keys are dropped; existing keys remain updatable.
func (m *Metadata) SetCustomKey(key, value string) {
	key = sanitizeAttribute(key)
	if key == "" {
		return
	}
	value = sanitizeAttribute(value)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[key]; !exists && len(m.keys) >= maxCustomAttributes {
		return
	}
	m.keys[key] = value
}

// CustomKeys returns a copy of the current key/value pairs.
func (m *Metadata) CustomKeys() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.keys))
	for k, v := range m.keys {
		out[k] = v
	}
	return out
}

// SetUserID records the application-assigned user identifier.
func (m *Metadata) SetUserID(id string) {
	id = sanitizeAttribute(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = id
}

// UserID returns the current user identifier, empty when unset.
func (m *Metadata) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// sanitizeAttribute trims whitespace and truncates to maxAttributeBytes,
// backing off to the preceding rune boundary so the result stays valid
// UTF-8.
func sanitizeAttribute(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxAttributeBytes {
		cut := maxAttributeBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
