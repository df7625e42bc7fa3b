package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAddr is the listen address used when neither config nor CLI set one.
const DefaultAddr = ":8000"

// Config represents the complete configuration for gotoon
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
	History  HistoryConfig  `yaml:"history"`
	Dev      DevConfig      `yaml:"dev"`
}

// ServerConfig controls the HTTP service
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxBodyBytes        int64  `yaml:"max_body_bytes"`
}

// SessionsConfig controls the per-session recent-conversion store
type SessionsConfig struct {
	TTLHours      int    `yaml:"ttl_hours"`
	SweepSchedule string `yaml:"sweep_schedule"`
	MaxEntries    int    `yaml:"max_entries"`
	RecentEntries int    `yaml:"recent_entries"`
}

// HistoryConfig controls persisted conversion history
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug   bool `yaml:"debug"`
	Verbose bool `yaml:"verbose"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                DefaultAddr,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
			MaxBodyBytes:        10 << 20, // 10 MiB request bodies
		},
		Sessions: SessionsConfig{
			TTLHours:      24,
			SweepSchedule: "@every 10m",
			MaxEntries:    20,
			RecentEntries: 10,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "gotoon.db",
		},
		Dev: DevConfig{
			Debug:   false,
			Verbose: false,
		},
	}
}

// ReadTimeout returns the server read timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

// SessionTTL returns how long an idle session survives before the sweep
// removes it.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLHours) * time.Hour
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults so absent keys keep their default values
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".gotoon.yml", ".gotoon.yaml", "gotoon.yml", "gotoon.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// MergeConfigs merges CLI overrides into a base config
// Non-empty values from override take precedence over base values
func MergeConfigs(base, override *Config) *Config {
	merged := *base // Start with a copy of base

	if override.Server.Addr != "" {
		merged.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeoutSeconds > 0 {
		merged.Server.ReadTimeoutSeconds = override.Server.ReadTimeoutSeconds
	}
	if override.Server.WriteTimeoutSeconds > 0 {
		merged.Server.WriteTimeoutSeconds = override.Server.WriteTimeoutSeconds
	}
	if override.Server.MaxBodyBytes > 0 {
		merged.Server.MaxBodyBytes = override.Server.MaxBodyBytes
	}
	if override.Sessions.TTLHours > 0 {
		merged.Sessions.TTLHours = override.Sessions.TTLHours
	}
	if override.Sessions.SweepSchedule != "" {
		merged.Sessions.SweepSchedule = override.Sessions.SweepSchedule
	}
	if override.Sessions.MaxEntries > 0 {
		merged.Sessions.MaxEntries = override.Sessions.MaxEntries
	}
	if override.Sessions.RecentEntries > 0 {
		merged.Sessions.RecentEntries = override.Sessions.RecentEntries
	}
	if override.History.Path != "" {
		merged.History.Path = override.History.Path
	}

	// Boolean values always override since they can't be "empty"
	merged.History.Enabled = override.History.Enabled
	merged.Dev.Debug = override.Dev.Debug
	merged.Dev.Verbose = override.Dev.Verbose

	return &merged
}

// LoadConfigWithCLI loads config with CLI argument precedence
// For boolean values, we need explicit flags to know if they were set
func LoadConfigWithCLI(configPath, cliAddr, cliHistoryPath string, cliDebug bool) (*Config, error) {
	// Start with defaults
	cfg := NewConfig()

	// Load config file if provided
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	// Apply CLI overrides only when they differ from the flag defaults,
	// so config file values win over untouched flags
	if cliAddr != "" && cliAddr != DefaultAddr {
		cfg.Server.Addr = cliAddr
	}
	if cliHistoryPath != "" {
		cfg.History.Path = cliHistoryPath
	}

	// Boolean CLI args override regardless of value
	if cliDebug {
		cfg.Dev.Debug = true
	}

	return cfg, nil
}
