package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all NorthStar configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Scorer and profile builder tuning
	Engine EngineConfig `yaml:"engine"`

	// Pillar catalog source
	Catalog CatalogConfig `yaml:"catalog"`

	// Run history database
	Store StoreConfig `yaml:"store"`

	// HTTP adapter
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// CatalogConfig configures where the pillar catalog comes from.
type CatalogConfig struct {
	Path     string `yaml:"path"`     // Optional YAML override; empty means built-in tables
	Watch    bool   `yaml:"watch"`    // Reload the file on change
	Debounce string `yaml:"debounce"` // Reload debounce window
}

// StoreConfig configures the run history store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "northstar",
		Version: "0.4.0",

		Engine: DefaultEngineConfig(),

		Catalog: CatalogConfig{
			Watch:    false,
			Debounce: "250ms",
		},

		Store: StoreConfig{
			DatabasePath: "data/northstar.db",
		},

		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8088,
			CORS:         true,
			AllowOrigins: []string{"*"},
			ReadTimeout:  "10s",
			WriteTimeout: "15s",
			CacheSize:    512,
			CacheTTL:     "5m",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if the config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("NORTHSTAR_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if path := os.Getenv("NORTHSTAR_CATALOG"); path != "" {
		c.Catalog.Path = path
	}
	if host := os.Getenv("NORTHSTAR_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("NORTHSTAR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("NORTHSTAR_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetCatalogDebounce returns the catalog reload debounce as a duration.
func (c *Config) GetCatalogDebounce() time.Duration {
	return parseDuration(c.Catalog.Debounce, 250*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
