// Package daemon loads peersearch configuration and wires the overlay,
// the search engine, the run ledger and the HTTP API together.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Search    SearchConfig    `toml:"search"`
	API       APIConfig       `toml:"api"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// SearchConfig supplies defaults for searches that omit them.
type SearchConfig struct {
	DefaultTTL      int    `toml:"default_ttl"`
	DefaultStrategy string `toml:"default_strategy"`
	Seed            *int64 `toml:"seed,omitempty"` // fixed walk seed; unset = random per run
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			DefaultTTL:      4,
			DefaultStrategy: string(domain.Flooding),
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7946,
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.Search.DefaultTTL < 0 {
		return fmt.Errorf("search.default_ttl: %w", domain.ErrInvalidTTL)
	}
	if _, err := domain.ParseStrategy(c.Search.DefaultStrategy); err != nil {
		return fmt.Errorf("search.default_strategy: %w", err)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port: %d out of range", c.API.Port)
	}
	return nil
}

// LoadConfig reads config from ~/.peersearch/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFile(filepath.Join(home(), "config.toml"))
}

// LoadConfigFile reads config from path, falling back to defaults when
// the file does not exist.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.peersearch/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(home(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// home returns the peersearch data directory.
func home() string {
	if env := os.Getenv("PEERSEARCH_HOME"); env != "" {
		return env
	}
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".peersearch")
}

// Home is exported for use by other packages.
func Home() string {
	return home()
}
