// Package config loads YAML configuration for the dsyncd server and dsync
// client binaries, applying defaults and validating the result.
package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed example-server.yaml example-client.yaml
var exampleConfigs embed.FS

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"text": true, "json": true}

// Logging configures the structured logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Sync tunes the synchronization timers and the fuzzy-patch matcher.
type Sync struct {
	IntervalMS          int     `yaml:"interval_ms"`
	HeartbeatIntervalMS int     `yaml:"heartbeat_interval_ms"`
	MatchDistance       int     `yaml:"match_distance"`
	MatchThreshold      float64 `yaml:"match_threshold"`
	ReceiveTimeoutS     int     `yaml:"receive_timeout_s"`
	SendTimeoutS        int     `yaml:"send_timeout_s"`
}

// ServerConfig is the dsyncd server's full configuration.
type ServerConfig struct {
	Address      string  `yaml:"address"`
	DatabasePath string  `yaml:"database_path"`
	DocumentName string  `yaml:"document_name"`
	RedisURL     string  `yaml:"redis_url"`
	Sync         Sync    `yaml:"sync"`
	Logging      Logging `yaml:"logging"`
}

// ClientConfig is the dsync client's full configuration.
type ClientConfig struct {
	Server   string  `yaml:"server"`
	ClientID string  `yaml:"client_id"`
	Sync     Sync    `yaml:"sync"`
	Logging  Logging `yaml:"logging"`
}

// DefaultServerConfig returns a configuration with sensible defaults,
// matching the CLI surface's own defaults so an absent config file and an
// absent flag behave identically.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:      "127.0.0.1:8080",
		DatabasePath: "documents.db",
		DocumentName: "main",
		Sync: Sync{
			IntervalMS:          500,
			HeartbeatIntervalMS: 30000,
			MatchDistance:       1000,
			MatchThreshold:      0.5,
			ReceiveTimeoutS:     60,
			SendTimeoutS:        10,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// DefaultClientConfig returns a configuration with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server: "127.0.0.1:8080",
		Sync: Sync{
			IntervalMS:          500,
			HeartbeatIntervalMS: 30000,
			MatchDistance:       1000,
			MatchThreshold:      0.5,
			ReceiveTimeoutS:     60,
			SendTimeoutS:        10,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	d := DefaultServerConfig()
	if cfg.Address == "" {
		cfg.Address = d.Address
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = d.DatabasePath
	}
	if cfg.DocumentName == "" {
		cfg.DocumentName = d.DocumentName
	}
	applySyncDefaults(&cfg.Sync, d.Sync)
	applyLoggingDefaults(&cfg.Logging, d.Logging)
}

func applyClientDefaults(cfg *ClientConfig) {
	d := DefaultClientConfig()
	if cfg.Server == "" {
		cfg.Server = d.Server
	}
	applySyncDefaults(&cfg.Sync, d.Sync)
	applyLoggingDefaults(&cfg.Logging, d.Logging)
}

func applySyncDefaults(s *Sync, d Sync) {
	if s.IntervalMS == 0 {
		s.IntervalMS = d.IntervalMS
	}
	if s.HeartbeatIntervalMS == 0 {
		s.HeartbeatIntervalMS = d.HeartbeatIntervalMS
	}
	if s.MatchDistance == 0 {
		s.MatchDistance = d.MatchDistance
	}
	if s.MatchThreshold == 0 {
		s.MatchThreshold = d.MatchThreshold
	}
	if s.ReceiveTimeoutS == 0 {
		s.ReceiveTimeoutS = d.ReceiveTimeoutS
	}
	if s.SendTimeoutS == 0 {
		s.SendTimeoutS = d.SendTimeoutS
	}
}

func applyLoggingDefaults(l *Logging, d Logging) {
	if l.Level == "" {
		l.Level = d.Level
	}
	if l.Format == "" {
		l.Format = d.Format
	}
}

// LoadServer reads and parses a server configuration file, applying
// defaults for missing fields and validating the result. An empty path
// returns DefaultServerConfig() unchanged.
func LoadServer(path string) (*ServerConfig, error) {
	if path == "" {
		return DefaultServerConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read server config: %w", err)
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse server config: %w", err)
	}
	applyServerDefaults(&cfg)
	if err := ValidateServer(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid server config: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads and parses a client configuration file.
func LoadClient(path string) (*ClientConfig, error) {
	if path == "" {
		return DefaultClientConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read client config: %w", err)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse client config: %w", err)
	}
	applyClientDefaults(&cfg)
	if err := ValidateClient(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid client config: %w", err)
	}
	return &cfg, nil
}

// ValidateServer checks field invariants a malformed config file or a
// handwritten struct could otherwise violate.
func ValidateServer(cfg *ServerConfig) error {
	host, port, err := splitHostPort(cfg.Address)
	if err != nil {
		return fmt.Errorf("address: %w", err)
	}
	_ = host
	if port < 1 || port > 65535 {
		return fmt.Errorf("address port must be between 1 and 65535, got %d", port)
	}
	if cfg.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if cfg.DocumentName == "" {
		return fmt.Errorf("document_name is required")
	}
	return validateSyncAndLogging(cfg.Sync, cfg.Logging)
}

// ValidateClient checks field invariants for a client configuration.
func ValidateClient(cfg *ClientConfig) error {
	if _, port, err := splitHostPort(cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	} else if port < 1 || port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", port)
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return validateSyncAndLogging(cfg.Sync, cfg.Logging)
}

func validateSyncAndLogging(s Sync, l Logging) error {
	if s.IntervalMS <= 0 {
		return fmt.Errorf("sync.interval_ms must be positive")
	}
	if s.HeartbeatIntervalMS <= 0 {
		return fmt.Errorf("sync.heartbeat_interval_ms must be positive")
	}
	if s.MatchThreshold <= 0 || s.MatchThreshold > 1 {
		return fmt.Errorf("sync.match_threshold must be in (0, 1]")
	}
	if !validLogLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", l.Level)
	}
	if !validLogFormats[strings.ToLower(l.Format)] {
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", l.Format)
	}
	return nil
}

func splitHostPort(addr string) (host string, port int, err error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("expected HOST:PORT, got %q", addr)
	}
	host = addr[:idx]
	portStr := addr[idx+1:]
	n := 0
	for _, r := range portStr {
		if r < '0' || r > '9' {
			return "", 0, fmt.Errorf("non-numeric port in %q", addr)
		}
		n = n*10 + int(r-'0')
	}
	if portStr == "" {
		return "", 0, fmt.Errorf("empty port in %q", addr)
	}
	return host, n, nil
}

// ExampleServerConfig returns the embedded example server YAML, printed by
// `dsyncd init`.
func ExampleServerConfig() ([]byte, error) {
	return exampleConfigs.ReadFile("example-server.yaml")
}

// ExampleClientConfig returns the embedded example client YAML.
func ExampleClientConfig() ([]byte, error) {
	return exampleConfigs.ReadFile("example-client.yaml")
}
