package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const tagKey = "tag"

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Options controls where records go. File output is enabled when Path is set.
// Records also go to View when present, or to stderr in dev mode.
type Options struct {
	Dev    bool
	Path   string
	Level  string
	Format string
	View   io.Writer
}

type Logger struct {
	tag  string
	base *slog.Logger
}

var (
	mu      sync.RWMutex
	root    = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile io.Closer
)

func InitLogger(opts Options) error {
	level := parseLevel(opts.Level)
	if opts.Dev {
		level = slog.LevelDebug
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	var handlers fanout
	var file io.Closer
	if path := strings.TrimSpace(opts.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		writer := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		}
		file = writer
		handlers = append(handlers, newFileHandler(opts.Format, writer, handlerOptions))
	}

	switch {
	case opts.View != nil:
		handlers = append(handlers, newConsoleHandler(opts.View, level, true))
	case opts.Dev:
		handlers = append(handlers, newConsoleHandler(os.Stderr, level, false))
	}

	var handler slog.Handler = handlers
	if len(handlers) == 0 {
		handler = slog.NewTextHandler(io.Discard, handlerOptions)
	}

	mu.Lock()
	previous := logFile
	root = slog.New(handler)
	logFile = file
	mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return nil
}

// NewLogger returns a logger whose records carry tag. It is safe to call
// before InitLogger; such loggers discard their output.
func NewLogger(tag string) *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &Logger{tag: tag, base: root.With(tagKey, tag)}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.base.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.base.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.base.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.base.Error(msg, args...)
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.base.Error(msg, args...)
	Close()
	os.Exit(1)
}

// Slog exposes the underlying structured logger, e.g. for http.Server.ErrorLog.
func (l *Logger) Slog() *slog.Logger {
	return l.base
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newFileHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(out, opts)
	default:
		return slog.NewJSONHandler(out, opts)
	}
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{tag: l.tag, base: l.base.With(args...)}
}
