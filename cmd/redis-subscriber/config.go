package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	tomlv2 "github.com/pelletier/go-toml/v2"
)

// cliConfig holds the resolved runtime settings
type cliConfig struct {
	Addr           string
	Channels       []string
	Patterns       []string
	LogLevel       string
	MetricsAddr    string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	EventBuffer    int
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Addr:           "localhost:6379",
		LogLevel:       "info",
		ConnectTimeout: 5 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// fileConfig maps config.toml keys onto runtime settings
type fileConfig struct {
	Addr              string   `toml:"addr"`
	Channels          []string `toml:"channels"`
	Patterns          []string `toml:"patterns"`
	LogLevel          string   `toml:"log_level"`
	MetricsAddr       string   `toml:"metrics_addr"`
	ConnectTimeoutSec int      `toml:"connect_timeout_seconds"`
	ReadTimeoutSec    int      `toml:"read_timeout_seconds"`
	WriteTimeoutSec   int      `toml:"write_timeout_seconds"`
	EventBuffer       int      `toml:"event_buffer"`
}

// loadConfig overlays file values onto defaults; keys absent from the
// file keep their defaults
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load subscriber config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("channels") {
		cfg.Channels = raw.Channels
	}
	if meta.IsDefined("patterns") {
		cfg.Patterns = raw.Patterns
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("connect_timeout_seconds") {
		cfg.ConnectTimeout = time.Duration(raw.ConnectTimeoutSec) * time.Second
	}
	if meta.IsDefined("read_timeout_seconds") {
		cfg.ReadTimeout = time.Duration(raw.ReadTimeoutSec) * time.Second
	}
	if meta.IsDefined("write_timeout_seconds") {
		cfg.WriteTimeout = time.Duration(raw.WriteTimeoutSec) * time.Second
	}
	if meta.IsDefined("event_buffer") {
		cfg.EventBuffer = raw.EventBuffer
	}

	return cfg, nil
}

// writeConfigTemplate renders a starter configuration as TOML. Without
// overwrite, an existing file is left untouched.
func writeConfigTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}

	defaults := defaultCLIConfig()
	template := fileConfig{
		Addr:              defaults.Addr,
		Channels:          []string{"news"},
		Patterns:          []string{},
		LogLevel:          defaults.LogLevel,
		MetricsAddr:       ":9100",
		ConnectTimeoutSec: int(defaults.ConnectTimeout / time.Second),
		ReadTimeoutSec:    0,
		WriteTimeoutSec:   int(defaults.WriteTimeout / time.Second),
		EventBuffer:       0,
	}

	var buf strings.Builder
	if err := tomlv2.NewEncoder(&buf).Encode(template); err != nil {
		return fmt.Errorf("encode config template: %w", err)
	}
	return os.WriteFile(path, []byte(buf.String()), 0o600)
}
