// Package logx is the boot log used across the core: one line per event,
// tagged with the emitting subsystem, e.g. "[device] probed cs-armv7-timer.0".
//
// Output goes through fmtx so MCU builds avoid pulling in package fmt.
package logx

import (
	"io"
	"sync"

	"boardcore/x/fmtx"
)

// Level filters lines below the configured threshold.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a config string to a Level. Unknown strings map to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sink serialises writes from loggers sharing an output.
type sink struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

// Logger writes tagged lines. The zero value and a nil *Logger discard.
type Logger struct {
	s   *sink
	tag string
}

// New returns a root logger writing to out. A nil out uses fmtx.DefaultOutput.
func New(out io.Writer, min Level) *Logger {
	if out == nil {
		out = fmtx.DefaultOutput
	}
	return &Logger{s: &sink{out: out, min: min}}
}

// Discard returns a logger that drops everything.
func Discard() *Logger { return &Logger{} }

// With returns a logger sharing l's output with a new tag.
func (l *Logger) With(tag string) *Logger {
	if l == nil {
		return &Logger{tag: tag}
	}
	return &Logger{s: l.s, tag: tag}
}

func (l *Logger) Debugf(format string, a ...any) { l.logf(LevelDebug, format, a...) }
func (l *Logger) Infof(format string, a ...any)  { l.logf(LevelInfo, format, a...) }
func (l *Logger) Warnf(format string, a ...any)  { l.logf(LevelWarn, format, a...) }
func (l *Logger) Errorf(format string, a ...any) { l.logf(LevelError, format, a...) }

func (l *Logger) logf(lv Level, format string, a ...any) {
	if l == nil || l.s == nil || lv < l.s.min {
		return
	}
	msg := fmtx.Sprintf(format, a...)
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.tag != "" {
		_, _ = fmtx.Fprintf(l.s.out, "[%s] ", l.tag)
	}
	if lv >= LevelWarn {
		_, _ = fmtx.Fprintf(l.s.out, "%s: ", lv.String())
	}
	_, _ = fmtx.Fprintf(l.s.out, "%s\n", msg)
}
