// Package config handles updater config file parsing and location resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied before a config file is read.
const (
	DefaultPollInterval = "1s"
	DefaultMaxWait      = "10s"
	DefaultHTTPTimeout  = "30s"
	DefaultLogLevel     = "info"
	DefaultMaxSizeMB    = 10
	DefaultMaxBackups   = 3
)

// ErrNotFound means no config file exists in any standard location.
var ErrNotFound = errors.New("no updater config found")

// LogConfig controls logging.
type LogConfig struct {
	Level      string `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`                   // debug, info, warn, error
	File       string `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`                      // Rotating log file; empty logs to stderr only
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" toml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"` // Rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups,omitempty" toml:"max_backups,omitempty" json:"max_backups,omitempty"` // Rotated files to keep
}

// HistoryConfig controls the record of past update runs.
type HistoryConfig struct {
	Dir  string `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty"` // Defaults to $XDG_CACHE_HOME/updater/history
	Keep int    `yaml:"keep" toml:"keep" json:"keep"`                            // Runs to keep; 0, the default, records nothing
}

// Config represents the parsed updater config file.
// Durations are kept as written ("1s", "500ms") and parsed on use.
type Config struct {
	SelfName     string        `yaml:"self_name,omitempty" toml:"self_name,omitempty" json:"self_name,omitempty"` // Overrides the executable's own name for the self-update rule
	WorkDir      string        `yaml:"work_dir,omitempty" toml:"work_dir,omitempty" json:"work_dir,omitempty"`    // Defaults to the executable's directory
	PollInterval string        `yaml:"poll_interval,omitempty" toml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	MaxWait      string        `yaml:"max_wait,omitempty" toml:"max_wait,omitempty" json:"max_wait,omitempty"`
	HTTPTimeout  string        `yaml:"http_timeout,omitempty" toml:"http_timeout,omitempty" json:"http_timeout,omitempty"` // "0" disables the timeout
	UserAgent    string        `yaml:"user_agent,omitempty" toml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Interactive  *bool         `yaml:"interactive,omitempty" toml:"interactive,omitempty" json:"interactive,omitempty"` // nil means prompt only on a terminal
	Log          LogConfig     `yaml:"log,omitempty" toml:"log,omitempty" json:"log,omitempty"`
	History      HistoryConfig `yaml:"history,omitempty" toml:"history,omitempty" json:"history,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		PollInterval: DefaultPollInterval,
		MaxWait:      DefaultMaxWait,
		HTTPTimeout:  DefaultHTTPTimeout,
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
		},
	}
}

// PollIntervalDuration returns the lock poll interval.
func (c *Config) PollIntervalDuration() time.Duration {
	return durationOr(c.PollInterval, DefaultPollInterval)
}

// MaxWaitDuration returns how long a file may stay locked before escalation.
func (c *Config) MaxWaitDuration() time.Duration {
	return durationOr(c.MaxWait, DefaultMaxWait)
}

// HTTPTimeoutDuration returns the per-request timeout; zero means none.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return durationOr(c.HTTPTimeout, DefaultHTTPTimeout)
}

// InteractiveOr resolves the interactive setting, using fallback when unset.
func (c *Config) InteractiveOr(fallback bool) bool {
	if c.Interactive == nil {
		return fallback
	}
	return *c.Interactive
}

// durationOr parses s, falling back to def when s is empty. Values reaching
// here have been through Validate.
func durationOr(s, def string) time.Duration {
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

// fileNames are tried in order in each search directory.
var fileNames = []string{
	"updater.yaml",
	"updater.yml",
	"updater.toml",
	"updater.json",
}

// Find searches for a config file in the standard locations:
// the explicit path, $UPDATER_CONFIG, the executable's directory, then
// $XDG_CONFIG_HOME/updater (~/.config/updater by default).
// Returns ErrNotFound when none exists.
func Find(explicitPath, exeDir string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Check UPDATER_CONFIG environment variable
	if envPath := os.Getenv("UPDATER_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	var searchPaths []string
	if exeDir != "" {
		searchPaths = append(searchPaths, exeDir)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		if home, err := os.UserHomeDir(); err == nil {
			xdgConfig = filepath.Join(home, ".config")
		}
	}
	if xdgConfig != "" {
		searchPaths = append(searchPaths, filepath.Join(xdgConfig, "updater"))
	}

	for _, dir := range searchPaths {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// Load reads and parses a config file from the given path.
// Fields the file leaves out keep their defaults.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault finds and loads the config file, returning the defaults
// and an empty path when there is none.
func LoadOrDefault(explicitPath, exeDir string) (*Config, string, error) {
	path, err := Find(explicitPath, exeDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), "", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
