// Package log provides named component loggers on top of the standard
// library logger.
//
// Every subsystem in searchkit (cache, suggest, session, provider...) logs
// through a component logger obtained with ForComponent(name). Messages are
// prefixed with "[name>]" so interleaved output from the cache and the
// request controller stays readable. Debug output is off by default and can
// be enabled globally or per component.
//
// Usage:
//
//	l := log.ForComponent("cache")
//	l.Warnf("persist failed, degrading to miss: %v", err)
//	l.Debugf("evicted %d entries", n)
//
// The package name collides with stdlib "log" on purpose; alias one of them
// when both are needed.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level names used in output lines.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelDebug = "DEBUG"
)

// Logger is a named logger for a single component.
type Logger struct {
	name string
	std  *stdlog.Logger
}

// writerHolder keeps atomic.Value monomorphic when the output writer is
// swapped between concrete types (os.File in production, bytes.Buffer in
// tests).
type writerHolder struct {
	w io.Writer
}

var (
	globalDebug    atomic.Bool
	componentDebug sync.Map // map[string]*atomic.Bool
	loggers        sync.Map // map[string]*Logger
	outputWriter   atomic.Value
)

func init() {
	outputWriter.Store(writerHolder{w: os.Stderr})
}

// ForComponent returns (and memoizes) the logger for the given component.
// The name should be a stable slug such as "cache" or "session".
func ForComponent(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	current := outputWriter.Load().(writerHolder).w
	logger := &Logger{
		name: name,
		std:  stdlog.New(current, "", stdlog.LstdFlags|stdlog.Lmicroseconds),
	}
	actual, _ := loggers.LoadOrStore(name, logger)
	return actual.(*Logger)
}

// SetGlobalDebug enables or disables debug logging for every component.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// EnableDebugFor enables debug logging for a single component.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	val, _ := componentDebug.LoadOrStore(name, &atomic.Bool{})
	val.(*atomic.Bool).Store(true)
}

// DebugEnabledFor reports whether debug output is active for the component,
// either globally or via a per-component override.
func DebugEnabledFor(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if val, ok := componentDebug.Load(name); ok {
		return val.(*atomic.Bool).Load()
	}
	return false
}

// SetOutput redirects all current and future loggers to w.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outputWriter.Store(writerHolder{w: w})
	loggers.Range(func(_, v any) bool {
		v.(*Logger).std.SetOutput(w)
		return true
	})
}

func (l *Logger) logInternal(level, msg string) {
	l.std.Println(level + " [" + l.name + ">] " + msg)
}

// Infof logs an informational message with fmt.Sprintf semantics.
func (l *Logger) Infof(format string, args ...any) {
	l.logInternal(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.logInternal(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.logInternal(LevelError, fmt.Sprintf(format, args...))
}

// Debugf logs a debug message if debug is enabled for this component.
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.logInternal(LevelDebug, fmt.Sprintf(format, args...))
}

// Timestamp returns the current time. Overridable in tests that need a
// deterministic clock.
var Timestamp = func() time.Time {
	return time.Now()
}
