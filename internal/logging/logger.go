package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level; anything
// else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger wraps the standard library logger with structured logging methods
type Logger struct {
	logger *log.Logger
	min    Level
}

// New creates a Logger writing to stdout at info level.
func New() *Logger {
	return NewWithWriter(os.Stdout, LevelInfo)
}

// NewWithWriter creates a Logger writing to w, dropping records below min.
// The native host passes os.Stderr because stdout carries protocol frames.
func NewWithWriter(w io.Writer, min Level) *Logger {
	return &Logger{logger: log.New(w, "", log.LstdFlags), min: min}
}

// Discard returns a Logger that writes nothing. Handy in tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, LevelError+1)
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, "DEBUG", msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, "INFO", msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, "WARN", msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, "ERROR", msg, keysAndValues...)
}

// log formats and outputs a log message with key-value pairs
// keysAndValues should be pairs like: "key1", value1, "key2", value2
func (l *Logger) log(level Level, label, msg string, keysAndValues ...interface{}) {
	if l == nil || level < l.min {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", label, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.logger.Println(b.String())
}
