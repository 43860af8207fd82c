package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAndLoadConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := writeConfigTemplate(path, false); err != nil {
		t.Fatalf("writeConfigTemplate() error = %v", err)
	}

	// A second write without overwrite must refuse
	if err := writeConfigTemplate(path, false); err == nil {
		t.Fatal("writeConfigTemplate() overwrote an existing file")
	}
	if err := writeConfigTemplate(path, true); err != nil {
		t.Fatalf("writeConfigTemplate() with overwrite error = %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Addr != "localhost:6379" {
		t.Errorf("Addr = %q, want localhost:6379", cfg.Addr)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0] != "news" {
		t.Errorf("Channels = %v, want [news]", cfg.Channels)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("MetricsAddr = %q, want :9100", cfg.MetricsAddr)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
}

func TestLoadConfigPartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "addr = \"redis.internal:6380\"\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	// Defined keys overlay the defaults
	if cfg.Addr != "redis.internal:6380" {
		t.Errorf("Addr = %q, want redis.internal:6380", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}

	// Absent keys keep their defaults
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want default 5s", cfg.ConnectTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want default 10s", cfg.WriteTimeout)
	}
	if len(cfg.Channels) != 0 {
		t.Errorf("Channels = %v, want empty", cfg.Channels)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", cfg.MetricsAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("loadConfig() on a missing file returned nil error")
	}
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("addr = [not toml"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatal("loadConfig() on malformed TOML returned nil error")
	}
}
