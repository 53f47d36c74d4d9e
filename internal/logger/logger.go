// Package logger provides a unified logging interface for the entire application.
// Packages depend on the small Logger interface; the concrete implementation is
// backed by logrus so that fields are rendered as structured key/value pairs.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the unified interface for all logging operations in the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})

	// Structured logging support
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogLevel represents the logging level
type LogLevel int

const (
	// LogLevelDebug enables all log messages
	LogLevelDebug LogLevel = iota
	// LogLevelInfo enables info, warning and error messages
	LogLevelInfo
	// LogLevelWarn enables warning and error messages
	LogLevelWarn
	// LogLevelError enables only error messages
	LogLevelError
	// LogLevelNone disables all logging
	LogLevelNone
)

// ParseLogLevel converts a string log level to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "none", "off":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	case LogLevelNone:
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// StandardLogger implements Logger on top of a logrus entry.
// Derived loggers share the underlying logrus.Logger and only differ in fields.
type StandardLogger struct {
	entry *logrus.Entry
	level LogLevel
}

// NewStandardLogger creates a new StandardLogger writing text lines to out
func NewStandardLogger(level string, out io.Writer) *StandardLogger {
	if out == nil {
		out = io.Discard
	}
	lvl := ParseLogLevel(level)

	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(lvl.logrusLevel())
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	return &StandardLogger{entry: logrus.NewEntry(base), level: lvl}
}

// Level returns the configured log level
func (l *StandardLogger) Level() LogLevel {
	return l.level
}

// Debug logs a debug message
func (l *StandardLogger) Debug(msg string) {
	if l.level <= LogLevelDebug {
		l.entry.Debug(msg)
	}
}

// Debugf logs a formatted debug message
func (l *StandardLogger) Debugf(format string, args ...interface{}) {
	if l.level <= LogLevelDebug {
		l.entry.Debugf(format, args...)
	}
}

// Info logs an info message
func (l *StandardLogger) Info(msg string) {
	if l.level <= LogLevelInfo {
		l.entry.Info(msg)
	}
}

// Infof logs a formatted info message
func (l *StandardLogger) Infof(format string, args ...interface{}) {
	if l.level <= LogLevelInfo {
		l.entry.Infof(format, args...)
	}
}

// Warn logs a warning message
func (l *StandardLogger) Warn(msg string) {
	if l.level <= LogLevelWarn {
		l.entry.Warn(msg)
	}
}

// Warnf logs a formatted warning message
func (l *StandardLogger) Warnf(format string, args ...interface{}) {
	if l.level <= LogLevelWarn {
		l.entry.Warnf(format, args...)
	}
}

// Error logs an error message
func (l *StandardLogger) Error(msg string) {
	if l.level <= LogLevelError {
		l.entry.Error(msg)
	}
}

// Errorf logs a formatted error message
func (l *StandardLogger) Errorf(format string, args ...interface{}) {
	if l.level <= LogLevelError {
		l.entry.Errorf(format, args...)
	}
}

// WithField returns a new logger with an additional field
func (l *StandardLogger) WithField(key string, value interface{}) Logger {
	return &StandardLogger{entry: l.entry.WithField(key, value), level: l.level}
}

// WithFields returns a new logger with additional fields
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	return &StandardLogger{entry: l.entry.WithFields(logrus.Fields(fields)), level: l.level}
}

// NoOpLogger is a logger that discards all output.
// It's useful for testing and for cases where logging should be disabled.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string)                          {}
func (n *NoOpLogger) Debugf(format string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string)                           {}
func (n *NoOpLogger) Infof(format string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string)                           {}
func (n *NoOpLogger) Warnf(format string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string)                          {}
func (n *NoOpLogger) Errorf(format string, args ...interface{}) {}

// WithField returns the same NoOpLogger
func (n *NoOpLogger) WithField(key string, value interface{}) Logger {
	return n
}

// WithFields returns the same NoOpLogger
func (n *NoOpLogger) WithFields(fields map[string]interface{}) Logger {
	return n
}

var (
	singletonNoOpLogger *NoOpLogger
	noOpLoggerOnce      sync.Once
)

// GetNoOpLogger returns the singleton no-op logger instance.
func GetNoOpLogger() Logger {
	noOpLoggerOnce.Do(func() {
		singletonNoOpLogger = &NoOpLogger{}
	})
	return singletonNoOpLogger
}

// Redact shortens a secret for log output, keeping only a short prefix.
func Redact(secret string) string {
	if len(secret) <= 6 {
		return strings.Repeat("*", len(secret))
	}
	return fmt.Sprintf("%s...(%d chars)", secret[:6], len(secret))
}
