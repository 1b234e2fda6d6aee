// Package testutil holds helpers shared by ContractLens tests.
package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
)

// Entry is one captured log call.
type Entry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field, if present.
func (e Entry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type sink struct {
	mu      sync.Mutex
	entries []Entry
}

// RecordingLogger implements logging.Logger and keeps every entry in memory.
// Children made by With and Named write to the same sink.
type RecordingLogger struct {
	sink   *sink
	name   string
	fields []logging.Field
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &sink{}}
}

func (r *RecordingLogger) record(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(r.fields)+len(fields))
	all = append(all, r.fields...)
	all = append(all, fields...)

	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.entries = append(r.sink.entries, Entry{Level: level, Logger: r.name, Message: msg, Fields: all})
}

func (r *RecordingLogger) Debug(msg string, fields ...logging.Field) { r.record("debug", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...logging.Field)  { r.record("info", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...logging.Field)  { r.record("warn", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...logging.Field) { r.record("error", msg, fields) }
func (r *RecordingLogger) Fatal(msg string, fields ...logging.Field) { r.record("fatal", msg, fields) }

func (r *RecordingLogger) With(fields ...logging.Field) logging.Logger {
	child := *r
	child.fields = append(append([]logging.Field{}, r.fields...), fields...)
	return &child
}

func (r *RecordingLogger) Named(name string) logging.Logger {
	child := *r
	if r.name != "" {
		name = r.name + "." + name
	}
	child.name = name
	return &child
}

func (r *RecordingLogger) WithContext(context.Context) logging.Logger { return r }

func (r *RecordingLogger) WithError(err error) logging.Logger { return r.With(logging.Err(err)) }

func (r *RecordingLogger) Sync() error { return nil }

// Entries returns a copy of everything logged so far.
func (r *RecordingLogger) Entries() []Entry {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	out := make([]Entry, len(r.sink.entries))
	copy(out, r.sink.entries)
	return out
}

// Find returns the first entry with the given level and message.
func (r *RecordingLogger) Find(level, msg string) (Entry, bool) {
	for _, e := range r.Entries() {
		if e.Level == level && e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}

// Reset drops captured entries.
func (r *RecordingLogger) Reset() {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.entries = nil
}

var _ logging.Logger = (*RecordingLogger)(nil)

//Personal.AI order the ending
