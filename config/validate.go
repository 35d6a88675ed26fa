package config

import "fmt"

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("backend: unsupported %q", c.Backend)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0,1]")
	}
	if c.Auth.HMACSecretFile == "" && c.Auth.HMACSecretEnv == "" {
		return fmt.Errorf("auth: secret file or environment variable required")
	}
	if c.API.Burst <= 0 {
		return fmt.Errorf("api: burst must be positive")
	}
	if c.Reconciler.Enabled {
		switch c.Reconciler.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("reconciler: unsupported driver %q", c.Reconciler.Driver)
		}
		if c.Reconciler.DSN == "" {
			return fmt.Errorf("reconciler: dsn required")
		}
	}
	return nil
}
