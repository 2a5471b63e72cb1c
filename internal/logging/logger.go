// Package logging wraps slog with the rotation and global-singleton
// conveniences the rest of the pipeline relies on.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Config holds logger configuration.
type Config struct {
	Level      Level
	OutputFile string // empty = stdout only
	MaxSize    int64  // bytes before rotation
	MaxBackups int
	JSONFormat bool
	AddSource  bool
}

// Logger wraps slog.Logger with rotation and a stable Close().
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
}

var (
	global *Logger
	once   sync.Once
)

// Initialize installs the global logger; subsequent calls are no-ops.
// Package-level helpers used before it is called fall back to defaults
// (see below).
func Initialize(config Config) error {
	var initErr error
	once.Do(func() {
		l, err := New(config)
		if err != nil {
			initErr = fmt.Errorf("initialize logger: %w", err)
			return
		}
		global = l
	})
	return initErr
}

// New creates a standalone logger instance (used by tests and by callers
// that want a scoped logger instead of the process-wide singleton).
func New(config Config) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}

	l := &Logger{config: config}

	writers := []io.Writer{os.Stdout}
	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
		if err := l.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("rotate logs: %w", err)
		}
		f, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", config.OutputFile, err)
		}
		l.file = f
		writers = append(writers, f)
	}

	opts := &slog.HandlerOptions{Level: toSlogLevel(config.Level), AddSource: config.AddSource}
	var handler slog.Handler
	mw := io.MultiWriter(writers...)
	if config.JSONFormat {
		handler = slog.NewJSONHandler(mw, opts)
	} else {
		handler = slog.NewTextHandler(mw, opts)
	}
	l.slog = slog.New(handler)
	return l, nil
}

func (l *Logger) rotateIfNeeded() error {
	if l.config.OutputFile == "" {
		return nil
	}
	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < l.config.MaxSize {
		return nil
	}
	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		old := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		next := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(old); err == nil {
			os.Rename(old, next)
		}
	}
	return os.Rename(l.config.OutputFile, l.config.OutputFile+".1")
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child logger carrying the given key/value pairs on every
// subsequent call. Stages use this to tag their log lines, e.g.
// logger.With("stage", "normalize", "batch_id", id).
func (l *Logger) With(args ...any) *Logger {
	cp := *l
	cp.slog = l.slog.With(args...)
	return &cp
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Package-level helpers delegate to the global singleton. If Initialize was
// never called, Debug/Info/Warn/Error fall back to slog's default logger
// and With falls back to a fresh New(DefaultConfig(false)) logger (mirrors
// the teacher's logging package so library code never needs a nil check).

func Debug(msg string, args ...any) { logOrDefault().Debug(msg, args...) }
func Info(msg string, args ...any)  { logOrDefault().Info(msg, args...) }
func Warn(msg string, args ...any)  { logOrDefault().Warn(msg, args...) }
func Error(msg string, args ...any) { logOrDefault().Error(msg, args...) }

func With(args ...any) *Logger {
	if global != nil {
		return global.With(args...)
	}
	l, _ := New(DefaultConfig(false))
	return l.With(args...)
}

func logOrDefault() *Logger {
	if global != nil {
		return global
	}
	return &Logger{slog: slog.Default()}
}

func DefaultConfig(debug bool) Config {
	level := INFO
	if debug {
		level = DEBUG
	}
	return Config{
		Level:      level,
		JSONFormat: !debug,
		AddSource:  debug,
	}
}
