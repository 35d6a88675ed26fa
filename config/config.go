package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends understood by storage.Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

type Config struct {
	ListenAddress string           `toml:"ListenAddress"`
	DataDir       string           `toml:"DataDir"`
	Backend       string           `toml:"Backend"`
	Environment   string           `toml:"Environment"`
	GenesisFile   string           `toml:"GenesisFile"`
	Logging       LoggingConfig    `toml:"logging"`
	Telemetry     TelemetryConfig  `toml:"telemetry"`
	Auth          AuthConfig       `toml:"auth"`
	API           APIConfig        `toml:"api"`
	Reconciler    ReconcilerConfig `toml:"reconciler"`
	Pauses        PauseConfig      `toml:"pauses"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a freshly written default.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if cfg.Auth.HMACSecretEnv == "" {
		if err := ensureSecret(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a new deployment.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8088"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./launchpad-data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = BackendLevelDB
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 28
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4318"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "launchpad"
	}
	if cfg.Auth.Audience == "" {
		cfg.Auth.Audience = "launchd"
	}
	if cfg.Auth.TokenTTL.Duration <= 0 {
		cfg.Auth.TokenTTL.Duration = time.Hour
	}
	if cfg.Auth.MaxSkew.Duration <= 0 {
		cfg.Auth.MaxSkew.Duration = 30 * time.Second
	}
	if cfg.API.RequestsPerMinute <= 0 {
		cfg.API.RequestsPerMinute = 600
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 50
	}
	if cfg.API.ReadHeaderTimeout.Duration <= 0 {
		cfg.API.ReadHeaderTimeout.Duration = 5 * time.Second
	}
	if cfg.API.WriteTimeout.Duration <= 0 {
		cfg.API.WriteTimeout.Duration = 15 * time.Second
	}
	if cfg.API.ShutdownTimeout.Duration <= 0 {
		cfg.API.ShutdownTimeout.Duration = 10 * time.Second
	}
	if cfg.API.MaxBodyBytes <= 0 {
		cfg.API.MaxBodyBytes = 1 << 20
	}
	if cfg.API.MaxConnections <= 0 {
		cfg.API.MaxConnections = 1024
	}
	if cfg.Reconciler.Driver == "" {
		cfg.Reconciler.Driver = "sqlite"
	}
	cfg.Reconciler.Driver = strings.ToLower(strings.TrimSpace(cfg.Reconciler.Driver))
	if cfg.Reconciler.DSN == "" && cfg.Reconciler.Driver == "sqlite" {
		cfg.Reconciler.DSN = filepath.Join(cfg.DataDir, "reconciler.db")
	}
	if cfg.Reconciler.ExportDir == "" {
		cfg.Reconciler.ExportDir = filepath.Join(cfg.DataDir, "exports")
	}
	if cfg.Reconciler.SnapshotInterval.Duration <= 0 {
		cfg.Reconciler.SnapshotInterval.Duration = 5 * time.Minute
	}
	if cfg.Pauses.Modules == nil {
		cfg.Pauses.Modules = []string{}
	}
}

// HMACSecret resolves the token signing secret from the environment or the
// secret file.
func (c *Config) HMACSecret() ([]byte, error) {
	if env := strings.TrimSpace(c.Auth.HMACSecretEnv); env != "" {
		value := strings.TrimSpace(os.Getenv(env))
		if value == "" {
			return nil, fmt.Errorf("auth: environment variable %s is empty", env)
		}
		return []byte(value), nil
	}
	raw, err := os.ReadFile(c.Auth.HMACSecretFile)
	if err != nil {
		return nil, fmt.Errorf("auth: read secret: %w", err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return nil, fmt.Errorf("auth: secret file %s is empty", c.Auth.HMACSecretFile)
	}
	return []byte(secret), nil
}

func ensureSecret(configPath string, cfg *Config) error {
	secretPath := cfg.Auth.HMACSecretFile
	if secretPath == "" {
		secretPath = defaultSecretPath(configPath)
	}

	if _, err := os.Stat(secretPath); os.IsNotExist(err) {
		if err := writeSecret(secretPath); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.Auth.HMACSecretFile != secretPath {
		cfg.Auth.HMACSecretFile = secretPath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	secretPath := defaultSecretPath(path)
	if err := writeSecret(secretPath); err != nil {
		return nil, err
	}
	cfg.Auth.HMACSecretFile = secretPath

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeSecret(path string) error {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(buf)+"\n"), 0o600)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultSecretPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "api.secret")
}
