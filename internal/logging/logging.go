// Package logging writes the session log shared by every pipeline of a run.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger appends timestamped lines to a session log. The zero value and a
// nil *Logger discard everything, so callers never need to check.
type Logger struct {
	sink   *sink
	prefix string
}

type sink struct {
	mu  sync.Mutex
	out io.Writer
	f   *os.File
	now func() time.Time
}

// Open appends to the log file at path, creating it if needed.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) // #nosec G302 G304 - operator log path
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{sink: &sink{out: f, f: f, now: time.Now}}
	l.Logf("=== Session Log Started: %s ===", time.Now().Format(time.RFC3339))

	return l, nil
}

// New writes to w; used by tests and the --log - option.
func New(w io.Writer, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}

	return &Logger{sink: &sink{out: w, now: now}}
}

// With returns a logger that tags every line with label.
func (l *Logger) With(label string) *Logger {
	if l == nil {
		return nil
	}

	return &Logger{sink: l.sink, prefix: l.prefix + "[" + label + "] "}
}

// Logf writes one line.
func (l *Logger) Logf(format string, args ...any) {
	if l == nil || l.sink == nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.out == nil {
		return
	}

	timestamp := l.sink.now().Format("15:04:05.000")
	_, _ = fmt.Fprintf(l.sink.out, "[%s] %s%s\n", timestamp, l.prefix, fmt.Sprintf(format, args...))
}

// Close ends the session. Only the root logger returned by Open owns a file.
func (l *Logger) Close() error {
	if l == nil || l.sink == nil || l.sink.f == nil {
		return nil
	}

	l.Logf("=== Session Log Ended: %s ===", time.Now().Format(time.RFC3339))

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	err := l.sink.f.Close()
	l.sink.f = nil
	l.sink.out = nil

	return err
}
