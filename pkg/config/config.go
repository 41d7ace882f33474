// Package config loads the optional privrun.yaml file with standing
// defaults for the CLI.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"privrun/pkg/log"
)

// AppFs is the filesystem used for config file access.
// Tests replace it with an in-memory filesystem.
var AppFs afero.Fs = afero.NewOsFs()

// Config holds the CLI defaults. Every field may be overridden by a flag.
type Config struct {
	// User is the default target user for run and notify.
	User string `yaml:"user"`
	// Env holds standing environment overrides, applied below any
	// overrides given on the command line.
	Env map[string]string `yaml:"env"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// Load reads and validates the config file. A missing file is not an error:
// it yields the defaults. A malformed file is.
func Load(filename string, logger log.Logger) (*Config, error) {
	f, err := afero.ReadFile(AppFs, filename)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no config file, using defaults", "path", filename)
			return Default(), nil
		}
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(f, cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	return cfg, nil
}

// Validate checks the environment override keys and the log level.
func (c *Config) Validate() error {
	for key := range c.Env {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("env keys cannot be empty")
		}
		if strings.Contains(key, "=") {
			return fmt.Errorf("env key %q cannot contain '='", key)
		}
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}
