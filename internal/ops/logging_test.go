package ops

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/beesaferoot/diff-sync/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *config.Logging
	}{
		{name: "text format", config: &config.Logging{Level: "info", Format: "text"}},
		{name: "json format", config: &config.Logging{Level: "debug", Format: "json"}},
		{name: "warn level", config: &config.Logging{Level: "warn", Format: "text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Fatal("expected logger to be created")
			}
			if logger.format != tt.config.Format {
				t.Errorf("expected format %s, got %s", tt.config.Format, logger.format)
			}
		})
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Logging{Level: "info", Format: "text"}

	logger := NewLoggerWithWriter(cfg, &buf)
	componentLogger := logger.WithComponent("syncserver")
	componentLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected log output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, "component") {
		t.Errorf("expected log output to contain 'component', got: %s", output)
	}
}

func TestIsDebugEnabled(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected bool
	}{
		{"debug level", "debug", true},
		{"info level", "info", false},
		{"warn level", "warn", false},
		{"error level", "error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(&config.Logging{Level: tt.level, Format: "text"})
			if logger.IsDebugEnabled() != tt.expected {
				t.Errorf("expected IsDebugEnabled to be %v, got %v", tt.expected, logger.IsDebugEnabled())
			}
		})
	}
}

func TestLoggerDomainHelpersDoNotPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{Level: "debug", Format: "text"}, &buf)

	logger.LogSyncTick("alice", 3, 7)
	logger.LogSyncTick("alice", 0, 7)
	logger.LogChecksumMismatch("bob", true)
	logger.LogChecksumMismatch("bob", false)
	logger.LogFuzzyApply("master", 2, 0)
	logger.LogFuzzyApply("master", 2, 1)
	logger.LogFanout("carol", 4, 12)
	logger.LogPersist("main", 13, nil)
	logger.LogPersist("main", 13, errors.New("disk full"))
	logger.LogSessionEvent("alice", "connected", 2)
	logger.LogHeartbeat("alice", false)
	logger.LogHeartbeat("alice", true)
	logger.LogStartup("dsyncd", "v0.1.0", map[string]any{"address": "127.0.0.1:8080"})
	logger.LogShutdown("dsyncd", "sigterm")
	logger.LogPanic("boom", "goroutine 1 [running]:")
	logger.LogBackupOperation("backup", "/tmp/documents.db", 1024, nil)
	logger.LogBackupOperation("restore", "/tmp/documents.db", 0, errors.New("not found"))

	if buf.String() == "" {
		t.Error("expected log output, got empty string")
	}
}
