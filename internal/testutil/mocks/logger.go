package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/lukaszraczylo/authflow/internal/logger"
)

// Logger is a testify mock for logger.Logger. Calls that were not set up
// with On are accepted, so tests only assert on the messages they care about.
type Logger struct {
	mock.Mock
}

func (m *Logger) record(method string, args ...interface{}) {
	for _, c := range m.ExpectedCalls {
		if c.Method == method {
			m.Called(args...)
			return
		}
	}
}

// Debug logs a debug message
func (m *Logger) Debug(msg string) { m.record("Debug", msg) }

// Debugf logs a formatted debug message
func (m *Logger) Debugf(format string, args ...interface{}) { m.record("Debugf", format) }

// Info logs an info message
func (m *Logger) Info(msg string) { m.record("Info", msg) }

// Infof logs a formatted info message
func (m *Logger) Infof(format string, args ...interface{}) { m.record("Infof", format) }

// Warn logs a warning message
func (m *Logger) Warn(msg string) { m.record("Warn", msg) }

// Warnf logs a formatted warning message
func (m *Logger) Warnf(format string, args ...interface{}) { m.record("Warnf", format) }

// Error logs an error message
func (m *Logger) Error(msg string) { m.record("Error", msg) }

// Errorf logs a formatted error message
func (m *Logger) Errorf(format string, args ...interface{}) { m.record("Errorf", format) }

// WithField returns the same mock
func (m *Logger) WithField(key string, value interface{}) logger.Logger { return m }

// WithFields returns the same mock
func (m *Logger) WithFields(fields map[string]interface{}) logger.Logger { return m }
