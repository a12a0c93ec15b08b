package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the daemon configuration, read from GW2PAO_* environment
// variables. Command-line flags may override individual fields before
// Validate runs.
type Config struct {
	Addr      string `env:"GW2PAO_ADDR" envDefault:"127.0.0.1:4780"`
	LogLevel  string `env:"GW2PAO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GW2PAO_LOG_FORMAT" envDefault:"text"`

	ProcessName         string        `env:"GW2PAO_PROCESS_NAME" envDefault:"Gw2-64.exe"`
	TelemetryFile       string        `env:"GW2PAO_TELEMETRY_FILE"`
	SettingsDir         string        `env:"GW2PAO_SETTINGS_DIR"`
	ProbeTTL            time.Duration `env:"GW2PAO_PROBE_TTL" envDefault:"2s"`
	TelemetryStaleAfter time.Duration `env:"GW2PAO_TELEMETRY_STALE_AFTER" envDefault:"15s"`

	// SurfaceGrace is how long a freshly shown overlay surface counts as
	// visible before a connected panel has to back that up.
	SurfaceGrace time.Duration `env:"GW2PAO_SURFACE_GRACE" envDefault:"15s"`

	WSMaxClientsPerChannel int     `env:"GW2PAO_WS_MAX_PER_CHANNEL" envDefault:"16"`
	WSMaxClientsGlobal     int64   `env:"GW2PAO_WS_MAX_GLOBAL" envDefault:"32"`
	WSMaxClientsPerIP      int     `env:"GW2PAO_WS_MAX_PER_IP" envDefault:"8"`
	WSConnectionsPerSecond float64 `env:"GW2PAO_WS_CONN_RATE" envDefault:"5"`
	WSConnectionBurst      int     `env:"GW2PAO_WS_CONN_BURST" envDefault:"10"`
}

// Load reads the configuration from the environment and fills in the
// per-user default paths for anything not set explicitly.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.TelemetryFile == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default telemetry file: %w", err)
		}
		cfg.TelemetryFile = filepath.Join(dir, "gw2pao", "link.json")
	}
	if cfg.SettingsDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default settings dir: %w", err)
		}
		cfg.SettingsDir = filepath.Join(dir, "gw2pao")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
// Callers that override fields after Load must call it again.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("GW2PAO_ADDR must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("GW2PAO_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("GW2PAO_LOG_FORMAT must be text or json; got %q", c.LogFormat)
	}
	if c.ProcessName == "" {
		return fmt.Errorf("GW2PAO_PROCESS_NAME must not be empty")
	}
	if c.ProbeTTL <= 0 {
		return fmt.Errorf("GW2PAO_PROBE_TTL must be positive; got %s", c.ProbeTTL)
	}
	if c.TelemetryStaleAfter <= 0 {
		return fmt.Errorf("GW2PAO_TELEMETRY_STALE_AFTER must be positive; got %s", c.TelemetryStaleAfter)
	}
	if c.SurfaceGrace < 0 {
		return fmt.Errorf("GW2PAO_SURFACE_GRACE must not be negative; got %s", c.SurfaceGrace)
	}
	if c.WSMaxClientsPerChannel <= 0 {
		return fmt.Errorf("GW2PAO_WS_MAX_PER_CHANNEL must be positive; got %d", c.WSMaxClientsPerChannel)
	}
	if c.WSMaxClientsGlobal <= 0 {
		return fmt.Errorf("GW2PAO_WS_MAX_GLOBAL must be positive; got %d", c.WSMaxClientsGlobal)
	}
	if c.WSMaxClientsPerIP <= 0 {
		return fmt.Errorf("GW2PAO_WS_MAX_PER_IP must be positive; got %d", c.WSMaxClientsPerIP)
	}
	if c.WSConnectionsPerSecond <= 0 {
		return fmt.Errorf("GW2PAO_WS_CONN_RATE must be positive; got %g", c.WSConnectionsPerSecond)
	}
	if c.WSConnectionBurst <= 0 {
		return fmt.Errorf("GW2PAO_WS_CONN_BURST must be positive; got %d", c.WSConnectionBurst)
	}
	return nil
}
