// Package config loads spacescope settings from a YAML file. The file is
// only ever read; nothing the user toggles at runtime is written back.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	Concurrency int           `yaml:"concurrency"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`
	Exclude     []string      `yaml:"exclude"`
	Display     DisplayConfig `yaml:"display"`
	SSH         SSHConfig     `yaml:"ssh"`
}

// DisplayConfig controls the interactive view's filters.
type DisplayConfig struct {
	HideSmall  bool   `yaml:"hide_small"`
	SmallBelow string `yaml:"small_below"`
	GreySmall  bool   `yaml:"grey_small"`
	GreyBelow  string `yaml:"grey_below"`
	HideHidden bool   `yaml:"hide_hidden"`
}

// SSHConfig controls remote connections.
type SSHConfig struct {
	Port    int    `yaml:"port"`
	Batch   bool   `yaml:"batch"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 0, // auto
		LogLevel:    "info",
		Display: DisplayConfig{
			HideSmall:  false,
			SmallBelow: "10 MB",
			GreySmall:  true,
			GreyBelow:  "1 GB",
		},
		SSH: SSHConfig{
			Port:    22,
			Timeout: "15s",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/spacescope/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "spacescope", "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults without error; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and that sizes and durations parse.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh port must be between 1 and 65535, got %d", c.SSH.Port)
	}
	if _, err := c.SmallThreshold(); err != nil {
		return err
	}
	if _, err := c.GreyThreshold(); err != nil {
		return err
	}
	if _, err := c.SSHTimeout(); err != nil {
		return err
	}
	return nil
}

// SmallThreshold is the size below which entries are hidden when HideSmall is on.
func (c *Config) SmallThreshold() (int64, error) {
	return parseSize("small_below", c.Display.SmallBelow)
}

// GreyThreshold is the size below which entries are greyed out.
func (c *Config) GreyThreshold() (int64, error) {
	return parseSize("grey_below", c.Display.GreyBelow)
}

// SSHTimeout is the connect timeout; empty means the default.
func (c *Config) SSHTimeout() (time.Duration, error) {
	if c.SSH.Timeout == "" {
		return 15 * time.Second, nil
	}
	d, err := time.ParseDuration(c.SSH.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid ssh timeout %q: %w", c.SSH.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("ssh timeout must be >= 0, got %s", d)
	}
	return d, nil
}

func parseSize(key, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if n > uint64(1<<63-1) {
		return 0, fmt.Errorf("%s %q is too large", key, s)
	}
	return int64(n), nil
}
