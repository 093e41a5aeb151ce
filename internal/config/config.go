// Package config loads arath settings from a YAML file, the ARA client
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/arath/internal/checkpoint"
	"github.com/harrison/arath/internal/logger"
	"github.com/harrison/arath/internal/report"
)

// Source kinds.
const (
	SourceHTTP    = "http"
	SourceOffline = "offline"
)

// Environment variables shared with the ARA python client.
const (
	EnvServer   = "ARA_API_SERVER"
	EnvUsername = "ARA_API_USERNAME"
	EnvPassword = "ARA_API_PASSWORD"
)

// DefaultDatabase is where a local ARA server keeps its sqlite database.
const DefaultDatabase = "~/.ara/server/ansible.sqlite"

// Config represents arath configuration options
type Config struct {
	// Source selects the upstream: "http" (ARA REST API) or "offline" (sqlite database)
	Source string `yaml:"source"`

	// Endpoint is the ARA API server URL
	Endpoint string `yaml:"endpoint"`

	// Username and Password enable basic auth against the API
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds each API request
	Timeout time.Duration `yaml:"timeout"`

	// Limit is the page size requested from the API (0 = server default)
	Limit int `yaml:"limit"`

	// Database is the ARA sqlite database read by the offline source
	Database string `yaml:"database"`

	// CheckpointPath is the file holding the last successful run start time
	CheckpointPath string `yaml:"checkpoint_path"`

	// IgnoreStatuses lists result statuses left out of the report
	IgnoreStatuses []string `yaml:"ignore_statuses"`

	// Format is the report format (text, markdown, html)
	Format string `yaml:"format"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir, when set, receives one log file per run
	LogDir string `yaml:"log_dir"`

	// DryRun reports without advancing the checkpoint
	DryRun bool `yaml:"dry_run"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Source:         SourceHTTP,
		Endpoint:       "http://127.0.0.1:8000",
		Timeout:        30 * time.Second,
		Limit:          0,
		Database:       DefaultDatabase,
		CheckpointPath: checkpoint.DefaultPath,
		IgnoreStatuses: slices.Clone(report.DefaultIgnore),
		Format:         report.FormatText,
		LogLevel:       "info",
		LogDir:         "",
		DryRun:         false,
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Timeout is read as a string so "30s" style values parse
	type yamlConfig struct {
		Source         string   `yaml:"source"`
		Endpoint       string   `yaml:"endpoint"`
		Username       string   `yaml:"username"`
		Password       string   `yaml:"password"`
		Timeout        string   `yaml:"timeout"`
		Limit          int      `yaml:"limit"`
		Database       string   `yaml:"database"`
		CheckpointPath string   `yaml:"checkpoint_path"`
		IgnoreStatuses []string `yaml:"ignore_statuses"`
		Format         string   `yaml:"format"`
		LogLevel       string   `yaml:"log_level"`
		LogDir         string   `yaml:"log_dir"`
		DryRun         bool     `yaml:"dry_run"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Source != "" {
		cfg.Source = yamlCfg.Source
	}
	if yamlCfg.Endpoint != "" {
		cfg.Endpoint = yamlCfg.Endpoint
	}
	if yamlCfg.Username != "" {
		cfg.Username = yamlCfg.Username
	}
	if yamlCfg.Password != "" {
		cfg.Password = yamlCfg.Password
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.Limit != 0 {
		cfg.Limit = yamlCfg.Limit
	}
	if yamlCfg.Database != "" {
		cfg.Database = yamlCfg.Database
	}
	if yamlCfg.CheckpointPath != "" {
		cfg.CheckpointPath = yamlCfg.CheckpointPath
	}
	if yamlCfg.Format != "" {
		cfg.Format = yamlCfg.Format
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.DryRun {
		cfg.DryRun = yamlCfg.DryRun
	}

	// An explicit ignore_statuses replaces the default, even when empty
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if _, exists := rawMap["ignore_statuses"]; exists {
			cfg.IgnoreStatuses = yamlCfg.IgnoreStatuses
			if cfg.IgnoreStatuses == nil {
				cfg.IgnoreStatuses = []string{}
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .arath/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".arath", "config.yaml"))
}

// ApplyEnv overrides the API connection settings from the ARA client
// environment variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvServer); v != "" {
		c.Endpoint = v
	}
	if v := getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := getenv(EnvPassword); v != "" {
		c.Password = v
	}
}

// FlagOverrides carries command-line values. Nil fields were not given.
type FlagOverrides struct {
	Source         *string
	Endpoint       *string
	Timeout        *time.Duration
	Limit          *int
	Database       *string
	CheckpointPath *string
	IgnoreStatuses *[]string
	Format         *string
	LogLevel       *string
	LogDir         *string
	DryRun         *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.Source != nil {
		c.Source = *f.Source
	}
	if f.Endpoint != nil {
		c.Endpoint = *f.Endpoint
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.Limit != nil {
		c.Limit = *f.Limit
	}
	if f.Database != nil {
		c.Database = *f.Database
	}
	if f.CheckpointPath != nil {
		c.CheckpointPath = *f.CheckpointPath
	}
	if f.IgnoreStatuses != nil {
		c.IgnoreStatuses = *f.IgnoreStatuses
	}
	if f.Format != nil {
		c.Format = *f.Format
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.DryRun != nil {
		c.DryRun = *f.DryRun
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	switch c.Source {
	case SourceHTTP:
		if strings.TrimSpace(c.Endpoint) == "" {
			return fmt.Errorf("endpoint is required when source is %q", SourceHTTP)
		}
	case SourceOffline:
		if strings.TrimSpace(c.Database) == "" {
			return fmt.Errorf("database is required when source is %q", SourceOffline)
		}
	default:
		return fmt.Errorf("invalid source %q, must be one of: %s, %s", c.Source, SourceHTTP, SourceOffline)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", c.Limit)
	}
	if strings.TrimSpace(c.CheckpointPath) == "" {
		return fmt.Errorf("checkpoint_path cannot be empty")
	}
	if !slices.Contains(report.Formats, c.Format) {
		return fmt.Errorf("invalid format %q, must be one of: %s", c.Format, strings.Join(report.Formats, ", "))
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %s", c.LogLevel, strings.Join(logger.Levels, ", "))
	}
	return nil
}

// DatabasePath returns Database with a leading "~/" expanded to the home directory.
func (c *Config) DatabasePath() (string, error) {
	return expandHome(c.Database)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
