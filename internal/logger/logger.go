package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var defaultLogger *slog.Logger

func init() {
	// Use JSON in production, text for development
	defaultLogger = New(Options{
		JSON:  os.Getenv("ENV") == "production",
		Level: os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(defaultLogger)
}

// Options configures a logger built by New.
type Options struct {
	JSON       bool
	Level      string // debug, info, warn, error; empty means info
	Output     string // "stdout" (default) or "file"
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a slog logger. File output rotates through lumberjack; an
// unusable file path falls back to stdout.
func New(opts Options) *slog.Logger {
	w := writerFor(opts)
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// Setup replaces the process-wide logger.
func Setup(opts Options) *slog.Logger {
	defaultLogger = New(opts)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func writerFor(opts Options) io.Writer {
	if opts.Output != "file" || opts.FilePath == "" {
		return os.Stdout
	}
	if dir := filepath.Dir(opts.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return os.Stdout
		}
	}
	return &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// Logger returns the default logger
func Logger() *slog.Logger {
	return defaultLogger
}

// Context keys
type contextKey string

const (
	tenantIDKey contextKey = "tenant_id"
	jobIDKey    contextKey = "job_id"
)

// WithTenantID adds the tenant being processed to context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithJobID adds the scheduler job identity to context
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// FromContext returns base (or the default logger when nil) enriched with
// the job and tenant ids carried by ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := base
	if l == nil {
		l = defaultLogger
	}

	if jobID, ok := ctx.Value(jobIDKey).(string); ok && jobID != "" {
		l = l.With("job_id", jobID)
	}

	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok && tenantID != "" {
		l = l.With("tenant_id", tenantID)
	}

	return l
}
