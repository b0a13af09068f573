// Package logging holds the logger contract shared by every component and
// the slog-backed defaults used when none is injected.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Logger is the structured logger consumed across the module. Arguments are
// key/value pairs. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Default returns the process wide slog logger.
func Default() Logger {
	return slog.Default()
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// New builds a slog logger writing to w. Format is "json" or "text", level
// is one of debug, info, warn, error.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, falling back to info.
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

// SlogProvider names child loggers with a "logger" attribute.
type SlogProvider struct {
	base *slog.Logger
}

// NewSlogProvider wraps base, or slog.Default when base is nil.
func NewSlogProvider(base *slog.Logger) *SlogProvider {
	if base == nil {
		base = slog.Default()
	}
	return &SlogProvider{base: base}
}

// GetLogger implements LoggerProvider.
func (p *SlogProvider) GetLogger(name string) Logger {
	return p.base.With("logger", name)
}

// ProviderFromLogger returns a provider that hands out the same logger for
// every name.
func ProviderFromLogger(logger Logger) LoggerProvider {
	if logger == nil {
		logger = Default()
	}
	return staticProvider{logger: logger}
}

// ResolveLogger picks the named logger from provider, falling back to
// fallback and then to Default. The returned provider is never nil.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	if provider == nil {
		if fallback == nil {
			provider = NewSlogProvider(nil)
		} else {
			return ProviderFromLogger(fallback), fallback
		}
	}

	if logger := provider.GetLogger(name); logger != nil {
		return provider, logger
	}

	if fallback == nil {
		fallback = Default()
	}
	return ProviderFromLogger(fallback), fallback
}

type staticProvider struct {
	logger Logger
}

func (p staticProvider) GetLogger(string) Logger {
	return p.logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
