// Package config handles TOML configuration for cloudctl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// DefaultCloudGroups are offered by the cloud form when no groups are configured
var DefaultCloudGroups = []string{
	"AWS-Group", "AZURE-Group", "GCP-Group",
	"Development", "Testing", "Production",
}

// Config is the root configuration structure.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	WAL     WALConfig     `toml:"wal"`
	Log     LogConfig     `toml:"log"`
	OTEL    OTELConfig    `toml:"otel"`
	Server  ServerConfig  `toml:"server"`
	UI      UIConfig      `toml:"ui"`
	Policy  PolicyConfig  `toml:"policy"`
	AWS     AWSConfig     `toml:"aws"`
}

// StorageConfig holds the location of the cloud database.
type StorageConfig struct {
	Path string `toml:"path"`
	// KeepRevisions is how much history compaction leaves behind
	KeepRevisions int64 `toml:"keep_revisions"`
}

// WALConfig holds the audit log settings.
type WALConfig struct {
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
	MaxFileSizeMB int64  `toml:"max_file_size_mb"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr               string `toml:"addr"`
	ShutdownTimeoutStr string `toml:"shutdown_timeout"`
	ShutdownTimeout    time.Duration
}

// UIConfig holds table and form settings.
type UIConfig struct {
	PageSize    int      `toml:"page_size"`
	CloudGroups []string `toml:"cloud_groups"`
}

// PolicyConfig holds admission policy settings.
type PolicyConfig struct {
	Dir     string `toml:"dir"`
	Builtin bool   `toml:"builtin"`
}

// AWSConfig holds settings for probing AWS credentials.
type AWSConfig struct {
	Profile string `toml:"profile"`
	Region  string `toml:"region"`
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set and exists, otherwise the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return Load(path)
}

func finish(cfg *Config) error {
	applyDefaults(cfg)
	return parseShutdownTimeout(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultDataDir()
	}
	if cfg.Storage.KeepRevisions == 0 {
		cfg.Storage.KeepRevisions = 100
	}
	if cfg.WAL.Dir == "" {
		cfg.WAL.Dir = filepath.Join(cfg.Storage.Path, "wal")
	}
	if cfg.WAL.RetentionDays == 0 {
		cfg.WAL.RetentionDays = 30
	}
	if cfg.WAL.MaxFileSizeMB == 0 {
		cfg.WAL.MaxFileSizeMB = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "cloudctl"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeoutStr == "" {
		cfg.Server.ShutdownTimeoutStr = "10s"
	}
	if cfg.UI.PageSize == 0 {
		cfg.UI.PageSize = 10
	}
	if len(cfg.UI.CloudGroups) == 0 {
		cfg.UI.CloudGroups = append([]string(nil), DefaultCloudGroups...)
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".cloudctl"
	}
	return filepath.Join(home, ".cloudctl")
}

func parseShutdownTimeout(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Server.ShutdownTimeoutStr)
	if err != nil {
		return fmt.Errorf("parse shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutStr, err)
	}
	cfg.Server.ShutdownTimeout = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	if c.UI.PageSize < 1 || c.UI.PageSize > 100 {
		return fmt.Errorf("ui: page_size must be between 1 and 100 (got %d)", c.UI.PageSize)
	}
	for _, g := range c.UI.CloudGroups {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("ui: cloud_groups must not contain blank names")
		}
	}
	if c.WAL.RetentionDays < 0 {
		return fmt.Errorf("wal: retention_days must not be negative (got %d)", c.WAL.RetentionDays)
	}
	if c.WAL.MaxFileSizeMB < 0 {
		return fmt.Errorf("wal: max_file_size_mb must not be negative (got %d)", c.WAL.MaxFileSizeMB)
	}
	if c.Storage.KeepRevisions < 0 {
		return fmt.Errorf("storage: keep_revisions must not be negative (got %d)", c.Storage.KeepRevisions)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server: shutdown_timeout must be positive")
	}
	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		return fmt.Errorf("otel: endpoint required when enabled")
	}
	return nil
}
