package httpmw

import (
	"context"
	"sync"

	"github.com/vardo/vardo-web/internal/log"
)

// spyLogger records every call, including fields added through With.
type spyLogger struct {
	mu      *sync.Mutex
	fields  []any
	entries *[]spyEntry
}

type spyEntry struct {
	level  string
	msg    string
	err    error
	fields map[string]any
}

func newSpyLogger() *spyLogger {
	return &spyLogger{mu: &sync.Mutex{}, entries: &[]spyEntry{}}
}

func (s *spyLogger) With(kv ...any) log.Logger {
	return &spyLogger{mu: s.mu, fields: append(append([]any(nil), s.fields...), kv...), entries: s.entries}
}

func (s *spyLogger) record(level string, err error, msg string, kv []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append(append([]any(nil), s.fields...), kv...)
	m := make(map[string]any, len(all)/2)
	for i := 0; i+1 < len(all); i += 2 {
		if k, ok := all[i].(string); ok {
			m[k] = all[i+1]
		}
	}
	*s.entries = append(*s.entries, spyEntry{level: level, msg: msg, err: err, fields: m})
}

func (s *spyLogger) Debug(_ context.Context, msg string, kv ...any) { s.record("debug", nil, msg, kv) }
func (s *spyLogger) Info(_ context.Context, msg string, kv ...any)  { s.record("info", nil, msg, kv) }
func (s *spyLogger) Warn(_ context.Context, msg string, kv ...any)  { s.record("warn", nil, msg, kv) }
func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.record("error", err, msg, kv)
}
func (s *spyLogger) Sync() error { return nil }

func (s *spyLogger) all() []spyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyEntry(nil), *s.entries...)
}

func (s *spyLogger) last() (spyEntry, bool) {
	e := s.all()
	if len(e) == 0 {
		return spyEntry{}, false
	}
	return e[len(e)-1], true
}
