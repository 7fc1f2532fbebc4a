package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	slog *slog.Logger
}

// New builds a Logger writing to w. format is "json" or "text"; level is one
// of debug, info, warn, error (anything else means info).
func New(w io.Writer, level, format string) *Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{slog: slog.New(handler)}
}

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

func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.slog.Error(msg, args...)
	os.Exit(1)
}

// Slog exposes the underlying structured logger for middleware.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Global logger instance
var GlobalLogger = New(os.Stdout, "info", "json")

// Setup replaces the global logger and the slog default.
func Setup(w io.Writer, level, format string) {
	GlobalLogger = New(w, level, format)
	slog.SetDefault(GlobalLogger.slog)
}

// Convenience functions
func Info(msg string, args ...any) {
	GlobalLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GlobalLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GlobalLogger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	GlobalLogger.Debug(msg, args...)
}

func Fatal(msg string, args ...any) {
	GlobalLogger.Fatal(msg, args...)
}
