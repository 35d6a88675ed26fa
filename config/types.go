package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses human readable duration strings.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in time.Duration notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// TelemetryConfig controls the OTLP exporters.
type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers,omitempty"`
	Metrics     bool    `toml:"Metrics"`
	Traces      bool    `toml:"Traces"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// AuthConfig configures bearer token verification for the HTTP API.
type AuthConfig struct {
	Issuer         string   `toml:"Issuer"`
	Audience       string   `toml:"Audience"`
	HMACSecretFile string   `toml:"HMACSecretFile"`
	HMACSecretEnv  string   `toml:"HMACSecretEnv,omitempty"`
	TokenTTL       Duration `toml:"TokenTTL"`
	MaxSkew        Duration `toml:"MaxSkew"`
}

// APIConfig tunes the HTTP server.
type APIConfig struct {
	RequestsPerMinute float64  `toml:"RequestsPerMinute"`
	Burst             int      `toml:"Burst"`
	ReadHeaderTimeout Duration `toml:"ReadHeaderTimeout"`
	WriteTimeout      Duration `toml:"WriteTimeout"`
	ShutdownTimeout   Duration `toml:"ShutdownTimeout"`
	MaxBodyBytes      int64    `toml:"MaxBodyBytes"`
	// MaxConnections caps concurrently accepted connections.
	MaxConnections int `toml:"MaxConnections"`
}

// ReconcilerConfig controls the relational event index and exports.
type ReconcilerConfig struct {
	Enabled          bool     `toml:"Enabled"`
	Driver           string   `toml:"Driver"`
	DSN              string   `toml:"DSN"`
	ExportDir        string   `toml:"ExportDir"`
	SnapshotInterval Duration `toml:"SnapshotInterval"`
}

// PauseConfig lists modules disabled at startup regardless of ledger state.
type PauseConfig struct {
	Modules []string `toml:"Modules"`
}

// Set returns the paused modules as a lookup map.
func (p PauseConfig) Set() map[string]bool {
	out := make(map[string]bool, len(p.Modules))
	for _, module := range p.Modules {
		if trimmed := strings.ToLower(strings.TrimSpace(module)); trimmed != "" {
			out[trimmed] = true
		}
	}
	return out
}
