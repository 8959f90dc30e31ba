// Package config handles CLI configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration. Environment variables
// override file values; see ApplyEnv.
type Config struct {
	APIKey            string `yaml:"api_key,omitempty"`
	BaseURL           string `yaml:"base_url,omitempty"`
	DefaultModel      string `yaml:"default_model,omitempty"`
	TimeoutSeconds    int    `yaml:"timeout_seconds,omitempty"`
	MaxRetries        int    `yaml:"max_retries,omitempty"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the
// current platform.
// - macOS/Linux: ~/.anthropic/config.yaml
// - Windows: %USERPROFILE%\.anthropic\config.yaml
func DefaultConfigPath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		// Fallback to current directory
		return "config.yaml"
	}

	return filepath.Join(homeDir, ".anthropic", "config.yaml")
}

// Load reads configuration from the specified path. A missing file is
// not an error; an unreadable or unparseable one is.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating the parent directory
// if needed. The file is written with owner-only permissions since it
// may hold an API key.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overlays ANTHROPIC_* environment variables onto the config.
// Set variables win over file values; malformed numeric variables are
// ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("ANTHROPIC_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("ANTHROPIC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("ANTHROPIC_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestsPerMinute = n
		}
	}
}
