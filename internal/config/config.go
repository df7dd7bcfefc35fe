// Package config loads openfocus settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. OPENFOCUS_LOG_LEVEL.
const EnvPrefix = "OPENFOCUS"

// Config represents the full openfocus configuration.
type Config struct {
	// Database is the document directory (the .ofocus bundle).
	Database string `yaml:"database" mapstructure:"database"`

	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Write WriteConfig `yaml:"write" mapstructure:"write"`
}

// CacheConfig configures the decoded-archive cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// WriteConfig configures how writes reach the open snapshot.
type WriteConfig struct {
	// Fold merges each written delta into the snapshot immediately.
	Fold bool `yaml:"fold" mapstructure:"fold"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DefaultDatabasePath(),
		Cache:    CacheConfig{Enabled: true},
		Log:      LogConfig{Level: "warn", Format: "text"},
		Write:    WriteConfig{Fold: true},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/openfocus/config.yaml or the
// platform equivalent.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "openfocus", "config.yaml"), nil
}

// DefaultDatabasePath returns where the desktop application keeps its
// document. It is empty when the home directory is unknown.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Containers", "com.omnigroup.OmniFocus2",
		"Data", "Library", "Application Support", "OmniFocus", "OmniFocus.ofocus")
}

// Load reads the config file at path over the defaults, then applies
// environment overrides. An empty path means DefaultConfigPath. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database", d.Database)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("write.fold", d.Write.Fold)
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
