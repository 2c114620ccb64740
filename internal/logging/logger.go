// Package logging builds divban's injected Logger around the standard
// log/slog idiom, adding a step-counter, child-logger, and sink
// abstractions on top.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Level is one of divban's six logical logging levels. debug/info/warn/error map
// directly onto slog levels; success/fail are divban-specific and are
// rendered as info/error respectively but kept distinct so sinks that care
// (e.g. a future TUI) can color them differently.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
	LevelFail    Level = "fail"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFail:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is injected through service.Context (internal/service), never held
// in a global, matching the package's no-global-state design.
type Logger struct {
	base   *slog.Logger
	tracer trace.Tracer
	prefix string
}

// Config selects which sinks a Logger writes to.
type Config struct {
	Level      Level
	Format     string // "pretty" or "json"
	LogFile    string // optional rotating file sink (lumberjack)
	EnableOTel bool
}

// New builds a root Logger from Config, wiring the text/JSON/file sinks
// into a single slog.Handler.
func New(cfg Config) *Logger {
	var writers []io.Writer
	writers = append(writers, os.Stderr)
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	w := io.MultiWriter(writers...)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		base:   slog.New(handler),
		tracer: otelTracer(cfg.EnableOTel),
	}
}

// Child returns a Logger whose messages are prefixed, without mutating the
// parent — used when a service wraps the orchestrator's logger per install.
func (l *Logger) Child(prefix string) *Logger {
	p := prefix
	if l.prefix != "" {
		p = l.prefix + "." + prefix
	}
	return &Logger{base: l.base, tracer: l.tracer, prefix: p}
}

func (l *Logger) format(msg string) string {
	if l.prefix == "" {
		return msg
	}
	return fmt.Sprintf("[%s] %s", l.prefix, msg)
}

func (l *Logger) log(ctx context.Context, level Level, msg string, args ...any) {
	l.base.Log(ctx, level.slogLevel(), l.format(msg), args...)
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any)   { l.log(ctx, LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)    { l.log(ctx, LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)    { l.log(ctx, LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any)   { l.log(ctx, LevelError, msg, args...) }
func (l *Logger) Success(ctx context.Context, msg string, args ...any) { l.log(ctx, LevelSuccess, msg, args...) }
func (l *Logger) Fail(ctx context.Context, msg string, args ...any)    { l.log(ctx, LevelFail, msg, args...) }

// Step renders "[i/n] msg" at info level.
func (l *Logger) Step(ctx context.Context, i, n int, msg string, args ...any) {
	l.log(ctx, LevelInfo, fmt.Sprintf("[%d/%d] %s", i, n, msg), args...)
}

// Tracer exposes the OTel tracer so callers (the orchestrator) can open
// spans around steps without importing otel directly.
func (l *Logger) Tracer() trace.Tracer { return l.tracer }
