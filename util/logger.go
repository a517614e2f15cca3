// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled messages through zerolog's console writer.
// The printf-style methods keep call sites terse; structured fields
// are available through [Logger.Zerolog] when a caller needs them.
type Logger struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	timestamps bool
	zl         zerolog.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Zerolog exposes the underlying logger for structured events.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl
}

// Info prints when verbosity ≥ 1.  Tagged INF.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(LogNormal, zerolog.InfoLevel, format, args...)
}

// Warn prints when verbosity ≥ 1.  Tagged WRN.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(LogNormal, zerolog.WarnLevel, format, args...)
}

// Verbose prints when verbosity ≥ 2.  Tagged DBG.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.emit(LogVerbose, zerolog.DebugLevel, format, args...)
}

// Debug prints when verbosity ≥ 3.  Tagged DBG with a trace marker.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.emit(LogDebug, zerolog.DebugLevel, format, args...)
}

// Error always prints regardless of verbosity.  Tagged ERR.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(LogQuiet, zerolog.ErrorLevel, format, args...)
}

func (l *Logger) emit(min LogLevel, level zerolog.Level, format string, args ...interface{}) {
	if l == nil || l.level < min {
		return
	}
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()
	ev := zl.WithLevel(level)
	if min == LogDebug {
		ev = ev.Bool("trace", true)
	}
	ev.Msg(fmt.Sprintf(format, args...))
}

// rebuild recreates the zerolog logger.  Callers hold l.mu.
func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{
		Out:        l.output,
		NoColor:    !isTerminal(l.output),
		TimeFormat: "15:04:05.000",
	}
	if !l.timestamps {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	zl := zerolog.New(cw).Level(zerolog.DebugLevel)
	if l.timestamps {
		zl = zl.With().Timestamp().Logger()
	}
	l.zl = zl
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
