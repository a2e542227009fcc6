package ops

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/beesaferoot/diff-sync/internal/config"
)

// Logger is a structured logger wrapper shared by dsyncd and dsync.
type Logger struct {
	*slog.Logger
	level  slog.Level
	format string
}

// NewLogger creates a structured logger from a Logging config, writing to
// stdout.
func NewLogger(cfg *config.Logging) *Logger {
	return newLogger(cfg, os.Stdout)
}

// NewLoggerWithWriter creates a logger with a custom writer, for tests.
func NewLoggerWithWriter(cfg *config.Logging, w io.Writer) *Logger {
	return newLogger(cfg, w)
}

func newLogger(cfg *config.Logging, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
		format: cfg.Format,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent adds a component field to all log messages.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component), level: l.level, format: l.format}
}

// WithFields adds custom fields to the logger.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), level: l.level, format: l.format}
}

// IsDebugEnabled reports whether debug logging is enabled.
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= slog.LevelDebug
}

// LogSyncTick logs one client-side tick: a local diff computed and sent,
// or nothing to send.
func (l *Logger) LogSyncTick(clientID string, hunkCount int, clientVersion uint64) {
	if hunkCount == 0 {
		l.Debug("tick produced no local edits", "client_id", clientID, "client_version", clientVersion)
		return
	}
	l.Debug("tick sent local edits",
		"client_id", clientID,
		"hunks", hunkCount,
		"client_version", clientVersion)
}

// LogChecksumMismatch logs a shadow checksum mismatch and how it was
// resolved.
func (l *Logger) LogChecksumMismatch(clientID string, recovered bool) {
	if recovered {
		l.Warn("checksum mismatch recovered via backup shadow", "client_id", clientID)
	} else {
		l.Warn("checksum mismatch unresolved, forcing full resync", "client_id", clientID)
	}
}

// LogFuzzyApply logs a fuzzy-patch application outcome.
func (l *Logger) LogFuzzyApply(target string, hunkCount, failedCount int) {
	if failedCount > 0 {
		l.Warn("fuzzy patch had unapplicable hunks",
			"target", target,
			"hunks", hunkCount,
			"failed", failedCount)
		return
	}
	l.Debug("fuzzy patch applied cleanly", "target", target, "hunks", hunkCount)
}

// LogFanout logs a server fan-out to one other session.
func (l *Logger) LogFanout(clientID string, hunkCount int, masterVersion uint64) {
	l.Debug("fanned out master update",
		"client_id", clientID,
		"hunks", hunkCount,
		"master_version", masterVersion)
}

// LogPersist logs a master document persistence event.
func (l *Logger) LogPersist(documentName string, version uint64, err error) {
	if err != nil {
		l.Error("persist master document failed",
			"document", documentName,
			"error", err)
		return
	}
	l.Info("persisted master document", "document", documentName, "version", version)
}

// LogSessionEvent logs a session connect or disconnect.
func (l *Logger) LogSessionEvent(clientID, event string, sessionCount int) {
	l.Info("session "+event,
		"client_id", clientID,
		"session_count", sessionCount)
}

// LogHeartbeat logs a heartbeat send or timeout.
func (l *Logger) LogHeartbeat(clientID string, timedOut bool) {
	if timedOut {
		l.Warn("heartbeat timeout, dropping session", "client_id", clientID)
		return
	}
	l.Debug("heartbeat", "client_id", clientID)
}

// LogStartup logs process startup information.
func (l *Logger) LogStartup(component, version string, cfg map[string]any) {
	l.Info(component+" starting", "version", version, "config", cfg)
}

// LogShutdown logs process shutdown.
func (l *Logger) LogShutdown(component, reason string) {
	l.Info(component+" shutting down", "reason", reason)
}

// LogBackupOperation logs a database backup or restore operation.
func (l *Logger) LogBackupOperation(op string, path string, sizeBytes int64, err error) {
	if err != nil {
		l.Error("backup operation failed",
			"operation", op,
			"path", path,
			"error", err)
		return
	}
	l.Info("backup operation completed",
		"operation", op,
		"path", path,
		"size_bytes", sizeBytes)
}

// LogPanic logs a recovered panic with its stack trace.
func (l *Logger) LogPanic(recovered any, stack string) {
	l.Error("panic recovered", "panic", fmt.Sprintf("%v", recovered), "stack", stack)
}

var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger(&config.Logging{Level: "info", Format: "text"})
}

// Default returns the package default logger, usable before a config is
// loaded.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the package default logger.
func SetDefault(l *Logger) { defaultLogger = l }

// Info logs an info message through the default logger.
func Info(msg string, fields ...any) { defaultLogger.Info(msg, fields...) }

// Debug logs a debug message through the default logger.
func Debug(msg string, fields ...any) { defaultLogger.Debug(msg, fields...) }

// Warn logs a warning message through the default logger.
func Warn(msg string, fields ...any) { defaultLogger.Warn(msg, fields...) }

// Error logs an error message through the default logger.
func Error(msg string, fields ...any) { defaultLogger.Error(msg, fields...) }
