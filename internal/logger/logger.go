// Package logger is the diagnostic stream of pgi.
//
// Every failure the worker swallows under its lenient policy ends up here,
// so the log is the only place such failures are observable.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Fields are extra key/value pairs attached to one entry.
type Fields map[string]interface{}

// Logger wraps zerolog.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string    // debug, info, warn, error
	Format     string    // json, console
	TimeFormat string    // rfc3339, unix, unixms, unixmicro
	Output     io.Writer // defaults to stderr
}

// DefaultConfig returns JSON logging at info level on stderr.
// Stdout is left to printed result tables.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: "rfc3339",
		Output:     os.Stderr,
	}
}

// New creates a logger from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = timeFormat(cfg.TimeFormat)

	if cfg.Format == "console" {
		w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return &Logger{zlog: zerolog.New(w).With().Timestamp().Logger()}
	}
	return &Logger{zlog: zerolog.New(out).With().Timestamp().Caller().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// InfoWith logs msg with fields at info level.
func (l *Logger) InfoWith(msg string, fields Fields) {
	emit(l.zlog.Info(), msg, fields)
}

// WarnWith logs msg, err and fields at warn level.
func (l *Logger) WarnWith(msg string, err error, fields Fields) {
	emit(l.zlog.Warn().Err(err), msg, fields)
}

// ErrorWith logs msg, err and fields at error level.
func (l *Logger) ErrorWith(msg string, err error, fields Fields) {
	emit(l.zlog.Error().Err(err), msg, fields)
}

func emit(e *zerolog.Event, msg string, fields Fields) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

// RequestEvent starts an info event for the HTTP access log.
func (l *Logger) RequestEvent() *zerolog.Event {
	return l.zlog.Info()
}

// --- child loggers ---

// With starts a child logger carrying extra fields.
func (l *Logger) With() *Context {
	return &Context{ctx: l.zlog.With()}
}

// Context accumulates the fields of a child logger.
type Context struct {
	ctx zerolog.Context
}

func (c *Context) Str(key, val string) *Context {
	c.ctx = c.ctx.Str(key, val)
	return c
}

func (c *Context) Int(key string, val int) *Context {
	c.ctx = c.ctx.Int(key, val)
	return c
}

func (c *Context) Logger() *Logger {
	return &Logger{zlog: c.ctx.Logger()}
}

// WithContext returns ctx carrying l.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.zlog.WithContext(ctx)
}

// FromContext returns the logger stored by WithContext, or fallback when
// ctx carries none. A nil fallback means the global logger.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if zlog := zerolog.Ctx(ctx); zlog.GetLevel() != zerolog.Disabled {
		return &Logger{zlog: *zlog}
	}
	if fallback == nil {
		return global
	}
	return fallback
}

// ParseLevel maps a level name to zerolog; unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func timeFormat(format string) string {
	switch format {
	case "unix":
		return zerolog.TimeFormatUnix
	case "unixms":
		return zerolog.TimeFormatUnixMs
	case "unixmicro":
		return zerolog.TimeFormatUnixMicro
	default:
		return time.RFC3339
	}
}

var global = New(nil)

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(l *Logger) {
	global = l
}
