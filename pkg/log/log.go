// Package log provides structured logging helpers for pr-creator.
// It wraps log/slog with package-level functions so call sites stay terse:
//
//	log.Info("created pull request", "number", pr.Number, "url", pr.URL)
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu       sync.Mutex
	levelVar = new(slog.LevelVar)
	root     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

// SetLevel sets the global log level from a string (debug, info, warn, error).
// Unknown values fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// SetOutput replaces the root logger's handler with one writing to the given
// logger. Primarily for tests.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
}

// Get returns the root logger instance.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root
}

// With returns a logger with the component name attached.
//
//	log := log.With("git")
//	log.Info("fetched remote", "remote", "origin")
func With(component string) *slog.Logger {
	return Get().With("component", component)
}

// Debug logs at debug level with key-value pairs.
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Info logs at info level with key-value pairs.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Warn logs at warn level with key-value pairs.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs at error level with key-value pairs.
func Error(msg string, args ...any) { Get().Error(msg, args...) }
