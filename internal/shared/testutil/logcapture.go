package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log entry.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogCapture is a slog.Handler that keeps every record in memory. Loggers
// derived with With share the same store.
type LogCapture struct {
	store *logStore
	attrs []slog.Attr
}

// NewLogCapture returns a logger writing into a fresh capture.
func NewLogCapture() (*slog.Logger, *LogCapture) {
	c := &LogCapture{store: &logStore{}}
	return slog.New(c), c
}

// Enabled implements slog.Handler
func (c *LogCapture) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.records = append(c.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

// WithAttrs implements slog.Handler
func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	merged = append(merged, c.attrs...)
	merged = append(merged, attrs...)
	return &LogCapture{store: c.store, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (c *LogCapture) WithGroup(string) slog.Handler {
	return c
}

// Records returns a copy of everything captured so far.
func (c *LogCapture) Records() []LogRecord {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := make([]LogRecord, len(c.store.records))
	copy(out, c.store.records)
	return out
}

// Find returns the first record at level whose message contains msg.
func (c *LogCapture) Find(level slog.Level, msg string) (LogRecord, bool) {
	for _, r := range c.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogged fails the test unless a record at level contains msg.
func AssertLogged(t *testing.T, c *LogCapture, level slog.Level, msg string) LogRecord {
	t.Helper()

	r, ok := c.Find(level, msg)
	if !ok {
		t.Errorf("expected %s log containing %q", level, msg)
		for _, r := range c.Records() {
			t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
		}
	}
	return r
}

// AssertNoErrors fails the test if any error-level record was captured.
func AssertNoErrors(t *testing.T, c *LogCapture) {
	t.Helper()

	for _, r := range c.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
