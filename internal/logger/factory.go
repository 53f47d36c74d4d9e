package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config contains logging information used to set up the logging framework
type Config struct {
	// Level is one of debug, info, warn, error, none
	Level string
	// FilePath, when set, sends output to a rotated log file instead of stderr
	FilePath string
	// MaxSizeMB is the rotation threshold for FilePath
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept
	MaxBackups int
}

// Factory creates loggers from configuration and caches them by name.
type Factory struct {
	mu      sync.RWMutex
	cfg     Config
	out     io.Writer
	closer  io.Closer
	loggers map[string]Logger
}

// NewFactory builds a factory writing to stderr or to a rotated file.
func NewFactory(cfg Config) (*Factory, error) {
	f := &Factory{cfg: cfg, out: os.Stderr, loggers: make(map[string]Logger)}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
			return nil, err
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		f.out = rotator
		f.closer = rotator
	}

	return f, nil
}

// GetLogger returns a logger for the given component name, creating one if it doesn't exist
func (f *Factory) GetLogger(name string) Logger {
	f.mu.RLock()
	if l, ok := f.loggers[name]; ok {
		f.mu.RUnlock()
		return l
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check after acquiring write lock
	if l, ok := f.loggers[name]; ok {
		return l
	}

	var l Logger
	if ParseLogLevel(f.cfg.Level) == LogLevelNone {
		l = GetNoOpLogger()
	} else {
		l = NewStandardLogger(f.cfg.Level, f.out).WithField("component", name)
	}
	f.loggers[name] = l
	return l
}

// Close releases the log file, if any
func (f *Factory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// NoOp returns a no-op logger
func NoOp() Logger {
	return GetNoOpLogger()
}
