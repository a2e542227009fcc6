package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultServerConfigValidates(t *testing.T) {
	if err := ValidateServer(DefaultServerConfig()); err != nil {
		t.Fatalf("default server config should validate: %v", err)
	}
}

func TestDefaultClientConfigRequiresClientID(t *testing.T) {
	cfg := DefaultClientConfig()
	if err := ValidateClient(cfg); err == nil {
		t.Fatal("expected missing client_id to fail validation")
	}
	cfg.ClientID = "alice"
	if err := ValidateClient(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadServerAppliesDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("document_name: \"scratch\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.DocumentName != "scratch" {
		t.Fatalf("got document_name %q", cfg.DocumentName)
	}
	if cfg.Address != DefaultServerConfig().Address {
		t.Fatalf("expected default address to be filled in, got %q", cfg.Address)
	}
	if cfg.Sync.IntervalMS != DefaultServerConfig().Sync.IntervalMS {
		t.Fatalf("expected default sync interval, got %d", cfg.Sync.IntervalMS)
	}
}

func TestLoadServerRejectsBadAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("address: \"not-an-address\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadServer(path); err == nil {
		t.Fatal("expected invalid address to fail")
	}
}

func TestLoadServerRejectsBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: \"verbose\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadServer(path); err == nil {
		t.Fatal("expected invalid log level to fail")
	}
}

func TestLoadServerMissingFileErrors(t *testing.T) {
	if _, err := LoadServer("/nonexistent/path/server.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadServerEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadServer("")
	if err != nil {
		t.Fatalf("LoadServer(\"\"): %v", err)
	}
	if *cfg != *DefaultServerConfig() {
		t.Fatal("expected defaults when no path given")
	}
}

func TestExampleConfigsEmbedded(t *testing.T) {
	if _, err := ExampleServerConfig(); err != nil {
		t.Fatalf("ExampleServerConfig: %v", err)
	}
	if _, err := ExampleClientConfig(); err != nil {
		t.Fatalf("ExampleClientConfig: %v", err)
	}
}
