// Package ioconfig provides I/O operations for loading configuration
// from files, environment, and flags. This is an impure package; the
// Config type itself lives in pkg/config.
package ioconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnames/taxtag/pkg/config"
	"github.com/spf13/viper"
)

// Load reads configuration from a YAML file and returns a Config.
// If configPath is empty, default locations are searched:
//   - ./taxtag.yaml
//   - ~/.config/taxtag/taxtag.yaml
//
// Environment variables with the TAXTAG_ prefix override file values
// (db.path -> TAXTAG_DB_PATH). Missing files fall back to defaults;
// a malformed file is an error.
func Load(configPath string) (*config.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TAXTAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("taxtag")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(config.ConfigDir(homeDir))
		}
	}

	cfg := config.Defaults()
	if homeDir, err := os.UserHomeDir(); err == nil {
		cfg.HomeDir = homeDir
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine (defaults plus env apply); a file
		// that exists but cannot be read is not, and a file named
		// explicitly must exist.
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || os.IsNotExist(err)
		if configPath != "" || !missing {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every known key so that environment variables
// apply even without a config file; viper only sees env vars for keys
// it already knows about.
func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("db.snapshot_path", d.DB.SnapshotPath)
	v.SetDefault("db.batch_size", d.DB.BatchSize)
	v.SetDefault("db.language", d.DB.Language)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.retry_attempts", d.API.RetryAttempts)
	v.SetDefault("api.retry_delay", d.API.RetryDelay)
	v.SetDefault("tagging.basic", d.Tagging.Basic)
	v.SetDefault("tagging.structured", d.Tagging.Structured)
	v.SetDefault("tagging.hierarchical", d.Tagging.Hierarchical)
	v.SetDefault("tagging.common_names", d.Tagging.CommonNames)
	v.SetDefault("tagging.create_sidecar", d.Tagging.CreateSidecar)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("jobs_number", d.JobsNumber)
}

// ConfigFileExists reports whether a config file exists at the
// default location.
func ConfigFileExists() (bool, error) {
	path, err := defaultConfigPath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func defaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return config.ConfigFilePath(homeDir), nil
}

// GenerateDefaultConfig creates a documented default config file at
// the default location. Existing files are never overwritten.
func GenerateDefaultConfig() (string, error) {
	path, err := defaultConfigPath()
	if err != nil {
		return "", err
	}
	if _, err = os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists at %s", path)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err = os.WriteFile(path, []byte(defaultConfigYAML()), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// defaultConfigYAML renders the default configuration with comments,
// so a generated file doubles as documentation.
func defaultConfigYAML() string {
	d := config.Defaults()
	return fmt.Sprintf(`# taxtag configuration.
# Every value can be overridden by a TAXTAG_* environment variable,
# e.g. db.path -> TAXTAG_DB_PATH.

db:
  # SQLite taxonomy database. Empty means the default location under
  # ~/.local/share/taxtag.
  path: ""
  # Bundled taxonomy snapshot (tar.gz of CSV exports) for 'taxtag setup'.
  snapshot_path: ""
  # Rows per multi-row insert during snapshot import.
  batch_size: %d
  # Vernacular name language for text search.
  language: %s

api:
  base_url: %s
  timeout: %s
  # Bounded retry with exponential backoff for remote fetches.
  retry_attempts: %d
  retry_delay: %s

tagging:
  basic: %t
  structured: %t
  hierarchical: %t
  common_names: %t
  # Create .xmp sidecars for images that have none.
  create_sidecar: %t

log:
  # 'text' or 'json'
  format: %s
  # 'debug', 'info', 'warn' or 'error'
  level: %s

# Concurrent workers for batch tagging. 0 means number of CPUs.
jobs_number: %d
`,
		d.DB.BatchSize, d.DB.Language,
		d.API.BaseURL, d.API.Timeout,
		d.API.RetryAttempts, d.API.RetryDelay,
		d.Tagging.Basic, d.Tagging.Structured, d.Tagging.Hierarchical,
		d.Tagging.CommonNames, d.Tagging.CreateSidecar,
		d.Log.Format, d.Log.Level,
		d.JobsNumber,
	)
}
