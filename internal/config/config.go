package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/catalogsync/internal/adapter"
)

// ErrUnknownSource is returned by Config.Source for names not in the file.
var ErrUnknownSource = errors.New("unknown source")

// EnvSourceName is the source ApplyEnv builds from DATABRICKS_* variables.
const EnvSourceName = "env"

// Config holds all application configuration.
type Config struct {
	Theme           string        `yaml:"theme"`
	Workers         int           `yaml:"workers"`
	Format          string        `yaml:"format"` // "yaml" or "json"
	IgnoreAdded     []string      `yaml:"ignore_added"`
	IncludeMetadata bool          `yaml:"include_metadata"`
	AllowDrop       bool          `yaml:"allow_drop"`
	DefaultSource   string        `yaml:"default_source,omitempty"`
	Sources         []Source      `yaml:"sources"`
	Audit           AuditConfig   `yaml:"audit"`
	History         HistoryConfig `yaml:"history"`
}

// AuditConfig controls the JSON Lines log of generated migrations.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Source holds parameters for a saved live catalog connection.
type Source struct {
	Name     string `yaml:"name"`
	Adapter  string `yaml:"adapter"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
	File     string `yaml:"file,omitempty"`
	Token    string `yaml:"token,omitempty"`
	HTTPPath string `yaml:"http_path,omitempty"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Theme:       "default",
		Workers:     4,
		Format:      "yaml",
		IgnoreAdded: []string{"default"},
		Audit: AuditConfig{
			Enabled:   true,
			MaxSizeMB: 10,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the catalogsync configuration directory path.
// It uses os.UserConfigDir to locate the base config directory and
// appends "catalogsync" to it, typically resulting in ~/.config/catalogsync/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "catalogsync"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from the default path
// (ConfigDir()/config.yaml).
func LoadDefault() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, "config.yaml"))
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories. The file may hold tokens, so it is written 0600.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveDefault writes the Config to the default path
// (ConfigDir()/config.yaml).
func (c *Config) SaveDefault() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return c.Save(filepath.Join(dir, "config.yaml"))
}

// ApplyEnv adds a databricks source named "env" from DATABRICKS_HOST,
// DATABRICKS_TOKEN and DATABRICKS_HTTP_PATH when host and token are set.
// The env source becomes the default when none is configured. An existing
// source named "env" is left untouched.
func (c *Config) ApplyEnv(getenv func(string) string) {
	host, token := getenv("DATABRICKS_HOST"), getenv("DATABRICKS_TOKEN")
	if host == "" || token == "" {
		return
	}
	if _, err := c.Source(EnvSourceName); err == nil {
		return
	}
	c.Sources = append(c.Sources, Source{
		Name:     EnvSourceName,
		Adapter:  "databricks",
		Host:     host,
		Token:    token,
		HTTPPath: getenv("DATABRICKS_HTTP_PATH"),
	})
	if c.DefaultSource == "" {
		c.DefaultSource = EnvSourceName
	}
}

// Source returns the saved source with the given name.
func (c *Config) Source(name string) (*Source, error) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], nil
		}
	}
	names := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		names[i] = s.Name
	}
	return nil, fmt.Errorf("%w %q (configured: %s)", ErrUnknownSource, name, strings.Join(names, ", "))
}

// AuditPath returns the audit log path, defaulting to ConfigDir()/audit.jsonl.
func (c *Config) AuditPath() (string, error) {
	return c.pathOrDefault(c.Audit.Path, "audit.jsonl")
}

// HistoryPath returns the history database path, defaulting to
// ConfigDir()/history.db.
func (c *Config) HistoryPath() (string, error) {
	return c.pathOrDefault(c.History.Path, "history.db")
}

func (c *Config) pathOrDefault(path, file string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// BuildDSN constructs a connection string from the individual fields of a
// Source. If DSN is already set, it is returned as-is.
func (sc *Source) BuildDSN() string {
	if sc.DSN != "" {
		return sc.DSN
	}
	host := sc.Host
	if host == "" && strings.ToLower(sc.Adapter) != "sqlite" && strings.ToLower(sc.Adapter) != "duckdb" {
		host = "localhost"
	}
	return adapter.BuildDSN(strings.ToLower(sc.Adapter), adapter.DSNParams{
		Host:     host,
		Port:     sc.Port,
		User:     sc.User,
		Password: sc.Password,
		Database: sc.Database,
		File:     sc.File,
		Token:    sc.Token,
		HTTPPath: sc.HTTPPath,
	})
}

// AdapterName returns the configured adapter, or the one detected from the
// DSN when none is configured.
func (sc *Source) AdapterName() string {
	if sc.Adapter != "" {
		return strings.ToLower(sc.Adapter)
	}
	return adapter.DetectAdapter(sc.DSN)
}

// DisplayString returns a human-readable representation of the source,
// formatted as "adapter://host:port/database" for network adapters or
// "adapter://file" for file-based adapters. Secrets are never included.
func (sc *Source) DisplayString() string {
	name := sc.AdapterName()
	switch name {
	case "sqlite", "duckdb":
		file := sc.File
		if file == "" {
			file = sc.DSN
		}
		return fmt.Sprintf("%s://%s", name, file)
	case "databricks":
		if sc.Host == "" {
			return "databricks://(dsn)"
		}
		host := strings.TrimSuffix(strings.TrimPrefix(sc.Host, "https://"), "/")
		if sc.HTTPPath != "" {
			return fmt.Sprintf("databricks://%s/%s", host, strings.TrimPrefix(sc.HTTPPath, "/"))
		}
		return "databricks://" + host
	}

	host := sc.Host
	if host == "" {
		host = "localhost"
	}

	var location string
	if sc.Port > 0 {
		location = fmt.Sprintf("%s:%d", host, sc.Port)
	} else {
		location = host
	}

	db := sc.Database
	if db != "" {
		return fmt.Sprintf("%s://%s/%s", name, location, db)
	}
	return fmt.Sprintf("%s://%s", name, location)
}
