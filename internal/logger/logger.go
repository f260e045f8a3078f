// Package logger holds the process-wide structured logger.
//
// L discards everything until Init is called, so library code can log freely
// without forcing output on embedders.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
var L *slog.Logger = discard()

const (
	logPrefix     = "assetctl-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Level   slog.Level // Minimum log level
	Format  string     // "text" (default) or "json"
	Output  io.Writer  // Destination; defaults to stderr unless LogDir is set
	LogDir  string     // When set and Output is nil, log to a dated file here
}

// Init configures logging and returns the new logger. Call from main() before
// any log calls.
func Init(opts Options) (*slog.Logger, error) {
	if !opts.Enabled {
		L = discard()
		return L, nil
	}

	out := opts.Output
	if out == nil && opts.LogDir != "" {
		f, err := openLogFile(opts.LogDir)
		if err != nil {
			return nil, err
		}
		out = f
	}
	if out == nil {
		out = os.Stderr
	}

	l, err := New(out, opts.Level, opts.Format)
	if err != nil {
		return nil, err
	}
	L = l
	return L, nil
}

// New builds a logger writing to w without touching L.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// Or returns l when non-nil, otherwise the global logger.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return L
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openLogFile(logDir string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	// Clean up old logs (best-effort, ignore errors)
	cleanOldLogs(logDir)

	filename := filepath.Join(logDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// Parse date from filename: assetctl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
