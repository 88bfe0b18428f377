// Package zapbridge tees an application's zap log entries into a faultline
// log buffer, so crash reports carry the log lines leading up to each
// event without a separate logging call site.
package zapbridge

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/faultline-io/faultline/pkg/faultline"
)

// Core is a zapcore.Core that mirrors every enabled entry into a
// faultline.LogBuffer. Wrap it with zapcore.NewTee alongside the
// application's primary core.
type Core struct {
	zapcore.LevelEnabler
	buffer faultline.LogBuffer
	fields []zapcore.Field
}

// NewCore mirrors entries at or above enab into buffer.
func NewCore(buffer faultline.LogBuffer, enab zapcore.LevelEnabler) *Core {
	return &Core{
		LevelEnabler: enab,
		buffer:       buffer,
	}
}

// With returns a child core carrying the additional fields.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	child := &Core{
		LevelEnabler: c.LevelEnabler,
		buffer:       c.buffer,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
	}
	child.fields = append(child.fields, c.fields...)
	child.fields = append(child.fields, fields...)
	return child
}

// Check adds this core to the checked entry when the level is enabled.
func (c *Core) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write appends the rendered entry to the log buffer.
func (c *Core) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	line := entry.Level.CapitalString() + " " + entry.Message
	for k, v := range enc.Fields {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	c.buffer.Append(entry.Time, line)
	return nil
}

// Sync is a no-op; the buffer is in memory.
func (c *Core) Sync() error { return nil }
