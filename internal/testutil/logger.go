// Package testutil provides shared test doubles for FamilyScope packages.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
)

// Entry is one captured log call.  Fields include those bound with With and
// WithError on the logger that wrote it.
type Entry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the field named key and whether it was present.
func (e Entry) Field(key string) (logging.Field, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return logging.Field{}, false
}

// StringField returns the string value of key, or "" when absent.
func (e Entry) StringField(key string) string {
	f, _ := e.Field(key)
	return f.String
}

type sink struct {
	mu      sync.Mutex
	entries []Entry
}

// RecordingLogger implements logging.Logger and keeps every entry in
// memory.  Child loggers from Named, With and WithError write to the same
// sink.
type RecordingLogger struct {
	sink   *sink
	name   string
	fields []logging.Field
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &sink{}}
}

func (l *RecordingLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, Entry{Level: level, Logger: l.name, Message: msg, Fields: all})
}

func (l *RecordingLogger) Debug(msg string, fields ...logging.Field) { l.log("debug", msg, fields) }
func (l *RecordingLogger) Info(msg string, fields ...logging.Field)  { l.log("info", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...logging.Field)  { l.log("warn", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...logging.Field) { l.log("error", msg, fields) }

// Fatal records the entry without exiting.
func (l *RecordingLogger) Fatal(msg string, fields ...logging.Field) { l.log("fatal", msg, fields) }

func (l *RecordingLogger) child(name string, extra ...logging.Field) *RecordingLogger {
	fields := make([]logging.Field, 0, len(l.fields)+len(extra))
	fields = append(fields, l.fields...)
	fields = append(fields, extra...)
	return &RecordingLogger{sink: l.sink, name: name, fields: fields}
}

func (l *RecordingLogger) With(fields ...logging.Field) logging.Logger {
	return l.child(l.name, fields...)
}

func (l *RecordingLogger) WithContext(ctx context.Context) logging.Logger {
	if id := logging.RequestIDFromContext(ctx); id != "" {
		return l.child(l.name, logging.String("request_id", id))
	}
	return l
}

func (l *RecordingLogger) WithError(err error) logging.Logger {
	return l.child(l.name, logging.Err(err))
}

func (l *RecordingLogger) Named(name string) logging.Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return l.child(name)
}

func (l *RecordingLogger) Sync() error { return nil }

// Entries returns a copy of everything logged so far.
func (l *RecordingLogger) Entries() []Entry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]Entry(nil), l.sink.entries...)
}

// Find returns the entries at level whose message contains substr.
func (l *RecordingLogger) Find(level, substr string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether any entry at level contains substr.
func (l *RecordingLogger) Has(level, substr string) bool {
	return len(l.Find(level, substr)) > 0
}

// Reset drops all entries.
func (l *RecordingLogger) Reset() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = nil
}

var _ logging.Logger = (*RecordingLogger)(nil)

//Personal.AI order the ending
