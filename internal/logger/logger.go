// Package logger provides the leveled, field-carrying logger used across the
// server. A request-scoped logger travels in the context so repositories and
// services log with the request id and user id attached.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel parses a string into a Level. Unknown strings fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a leveled logger. The With* methods return copies, so a logger
// can be freely shared and specialized per request.
type Logger struct {
	mu       *sync.Mutex
	out      io.Writer
	level    Level
	prefix   string
	fields   map[string]any
	colorize bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput sets the output destination.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.out = w }
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *Logger) { l.level = level }
}

// WithPrefix sets a prefix for log messages.
func WithPrefix(prefix string) Option {
	return func(l *Logger) { l.prefix = prefix }
}

// WithColors enables or disables colorized level names.
func WithColors(enabled bool) Option {
	return func(l *Logger) { l.colorize = enabled }
}

// New creates a new Logger with the given options.
func New(opts ...Option) *Logger {
	l := &Logger{
		mu:    &sync.Mutex{},
		out:   os.Stdout,
		level: INFO,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLogger = New()

// SetDefault sets the default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the default logger.
func Default() *Logger {
	return defaultLogger
}

// child copies the logger, sharing the mutex and output so concurrent
// derived loggers still serialize their writes.
func (l *Logger) child() *Logger {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		mu:       l.mu,
		out:      l.out,
		level:    l.level,
		prefix:   l.prefix,
		fields:   fields,
		colorize: l.colorize,
	}
}

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	c := l.child()
	c.fields[key] = value
	return c
}

// WithFields returns a new logger with the given fields added.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	c := l.child()
	for k, v := range fields {
		c.fields[k] = v
	}
	return c
}

// WithPrefix returns a new logger with the given prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	c := l.child()
	c.prefix = prefix
	return c
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.level {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" ")
	if l.colorize {
		sb.WriteString(levelColors[level])
		fmt.Fprintf(&sb, "%-5s", level)
		sb.WriteString("\033[0m")
	} else {
		fmt.Fprintf(&sb, "%-5s", level)
	}
	if l.prefix != "" {
		sb.WriteString(" [")
		sb.WriteString(l.prefix)
		sb.WriteString("]")
	}
	sb.WriteString(" ")
	sb.WriteString(msg)

	// Fields print in key order so log lines are stable and greppable.
	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, l.fields[k])
		}
	}
	sb.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.out, sb.String())
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) { l.log(DEBUG, msg, args...) }

// Info logs a message at INFO level.
func (l *Logger) Info(msg string, args ...any) { l.log(INFO, msg, args...) }

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string, args ...any) { l.log(WARN, msg, args...) }

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string, args ...any) { l.log(ERROR, msg, args...) }

// Package-level functions that use the default logger.

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

type ctxKey struct{}

// FromContext returns the logger from the context, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// NewContext returns a new context carrying the given logger.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}
