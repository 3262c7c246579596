/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a log.FieldLogger that keeps every entry in memory,
// so tests can check what windows, monitors and HTTP handlers have logged.
package logtest

import (
	"strings"
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/twitter/cloudhopper-commons-sub002/log"
)

// RecordedEntry is a single logged message with all its fields (own and derived via With).
type RecordedEntry struct {
	LoggerName string
	Fields     []log.Field
	Level      log.Level
	Time       time.Time
	Text       string
}

// FindField returns the last field with the given key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := len(re.Fields) - 1; i >= 0; i-- {
		if re.Fields[i].Key == key {
			field := re.Fields[i]
			return &field, true
		}
	}
	return nil, false
}

// StringField returns the value of the string field with the given key.
func (re *RecordedEntry) StringField(key string) (string, bool) {
	field, ok := re.FindField(key)
	if !ok || field.Type != logf.FieldTypeBytesToString {
		return "", false
	}
	return string(field.Bytes), true
}

// IntField returns the value of the integer field with the given key.
func (re *RecordedEntry) IntField(key string) (int64, bool) {
	field, ok := re.FindField(key)
	if !ok || field.Type != logf.FieldTypeInt64 {
		return 0, false
	}
	return field.Int, true
}

// ErrorField returns the error stored in the field with the given key (log.Error uses "error").
func (re *RecordedEntry) ErrorField(key string) (error, bool) {
	field, ok := re.FindField(key)
	if !ok || field.Type != logf.FieldTypeError {
		return nil, false
	}
	err, ok := field.Any.(error)
	return err, ok
}

type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.DerivedFields)+len(e.Fields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)
	entry := RecordedEntry{
		LoggerName: e.LoggerName,
		Fields:     fields,
		Level:      levelFromLogf(e.Level),
		Time:       e.Time,
		Text:       e.Text,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

func (s *entryStore) filter(keep func(entry RecordedEntry) bool, limit int) []RecordedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []RecordedEntry
	for _, entry := range s.entries {
		if keep(entry) {
			res = append(res, entry)
			if limit > 0 && len(res) == limit {
				break
			}
		}
	}
	return res
}

// Recorder is a log.FieldLogger that records all entries at debug level and above.
// Loggers derived via With and WithLevel share the same records.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{LogfAdapter: &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store: store}
}

// With returns a Recorder that adds the given fields to every entry.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.With(fs...).(*log.LogfAdapter), store: r.store}
}

// WithLevel returns a Recorder that drops entries below the given level.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), store: r.store}
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	return r.store.filter(func(RecordedEntry) bool { return true }, 0)
}

// FindEntry returns the first entry with exactly the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(entry RecordedEntry) bool { return entry.Text == msg })
}

// FindEntryByFilter returns the first entry accepted by the filter.
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	found := r.store.filter(filter, 1)
	if len(found) == 0 {
		return RecordedEntry{}, false
	}
	return found[0], true
}

// FindAllEntriesByFilter returns all entries accepted by the filter.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	return r.store.filter(filter, 0)
}

// FindAllEntriesWithPrefix returns all entries whose message starts with the prefix
// (e.g. "panic in window listener" messages carry the panic value after it).
func (r *Recorder) FindAllEntriesWithPrefix(prefix string) []RecordedEntry {
	return r.FindAllEntriesByFilter(func(entry RecordedEntry) bool { return strings.HasPrefix(entry.Text, prefix) })
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}

func levelFromLogf(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
