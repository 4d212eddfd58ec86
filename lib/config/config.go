// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/hearth/lib/ref"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Hearth.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// ServerName is this homeserver's federation name. Required; it
	// becomes the origin of every event this server signs.
	ServerName string `yaml:"server_name"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Storage configures the SQLite store.
	Storage StorageConfig `yaml:"storage"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for Hearth data.
	Root string `yaml:"root"`

	// Keys is the directory holding the server's signing keypair.
	// Default: <root>/keys
	Keys string `yaml:"keys"`
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	// Database is the SQLite database path.
	// Default: <root>/hearth.db
	Database string `yaml:"database"`

	// PoolSize is the connection pool size.
	// Default: 4
	PoolSize int `yaml:"pool_size"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum level emitted: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration. These defaults are a
// base before loading the config file, not a substitute for one.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "hearth")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root: defaultRoot,
			Keys: filepath.Join(defaultRoot, "keys"),
		},
		Storage: StorageConfig{
			Database: filepath.Join(defaultRoot, "hearth.db"),
			PoolSize: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the HEARTH_CONFIG environment
// variable. There are no fallbacks: if HEARTH_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("HEARTH_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("HEARTH_CONFIG environment variable not set; " +
			"set it to the path of your hearth.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file is
// the single source of truth; environment variables do not override
// its values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Origin parses the configured server name.
func (c *Config) Origin() (ref.ServerName, error) {
	return ref.ParseServerName(c.ServerName)
}

func (c *Config) validate() error {
	if c.ServerName == "" {
		return fmt.Errorf("server_name is required")
	}
	if _, err := ref.ParseServerName(c.ServerName); err != nil {
		return fmt.Errorf("server_name: %w", err)
	}
	if c.Storage.PoolSize < 1 {
		return fmt.Errorf("storage.pool_size must be at least 1, got %d", c.Storage.PoolSize)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Keys != "" {
			c.Paths.Keys = overrides.Paths.Keys
		}
	}

	if overrides.Storage != nil {
		if overrides.Storage.Database != "" {
			c.Storage.Database = overrides.Storage.Database
		}
		if overrides.Storage.PoolSize != 0 {
			c.Storage.PoolSize = overrides.Storage.PoolSize
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
	}
}

// expandVariables expands ${HOME} and ${USER} in path fields for
// portability.
func (c *Config) expandVariables() {
	expand := func(s string) string {
		s = strings.ReplaceAll(s, "${HOME}", os.Getenv("HOME"))
		s = strings.ReplaceAll(s, "${USER}", os.Getenv("USER"))
		return s
	}
	c.Paths.Root = expand(c.Paths.Root)
	c.Paths.Keys = expand(c.Paths.Keys)
	c.Storage.Database = expand(c.Storage.Database)
}
