// Package logging is the levelled logger shared by the point state, the
// GPU devices and the demo application. Each component logs through a
// scoped child from With, so lines carry their origin.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// With returns a logger whose lines are tagged with component. The
	// debug switch is shared with the parent.
	With(component string) Logger
}

// sink is the state every scoped logger of one tree writes through.
type sink struct {
	mu    sync.Mutex
	debug bool
	out   *log.Logger
	err   *log.Logger
}

type DefaultLogger struct {
	sink  *sink
	scope string
}

func NewDefaultLogger(scope string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		sink: &sink{
			debug: debug,
			out:   log.New(os.Stdout, "", flags),
			err:   log.New(os.Stderr, "", flags),
		},
		scope: scope,
	}
}

func (l *DefaultLogger) With(component string) Logger {
	scope := component
	if l.scope != "" {
		scope = l.scope + "/" + component
	}
	return &DefaultLogger{sink: l.sink, scope: scope}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.sink.mu.Lock()
	l.sink.debug = enabled
	l.sink.mu.Unlock()
}

func (l *DefaultLogger) line(level, format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if l.scope == "" {
		return level + ": " + msg
	}
	return "[" + l.scope + "] " + level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.sink.out.Print(l.line("DEBUG", format, args))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.sink.out.Print(l.line("INFO", format, args))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.sink.err.Print(l.line("WARN", format, args))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.sink.err.Print(l.line("ERROR", format, args))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (n nopLogger) With(string) Logger  { return n }

// Scoped returns l.With(component), or a no-op logger when l is nil.
func Scoped(l Logger, component string) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l.With(component)
}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
