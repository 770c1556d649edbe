// Package config provides configuration management for taxtag.
//
// This package has no I/O dependencies (no file operations, no
// network calls). Loading from files and environment happens in
// internal/ioconfig.
//
// Precedence (highest to lowest): CLI flags > env vars > taxtag.yaml
// > defaults. Environment variables use the TAXTAG_ prefix with
// underscores for nesting (db.path -> TAXTAG_DB_PATH).
//
// The config returned by New() is always valid; all mutations go
// through Option functions, which reject invalid values and leave the
// config in a valid state.
package config

import (
	"runtime"
	"time"
)

// Config is the complete taxtag configuration.
type Config struct {
	// DB contains local SQLite store settings.
	DB DBConfig `mapstructure:"db" yaml:"db"`

	// API contains remote taxonomy service settings.
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Tagging selects which metadata namespaces are generated and how
	// sidecars are handled.
	Tagging TaggingConfig `mapstructure:"tagging" yaml:"tagging"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for batch tag
	// writing. Defaults to the number of available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and the taxonomy
	// database reside. Set by the CLI during init; no default.
	HomeDir string `mapstructure:"-" yaml:"-"`
}

// DBConfig contains local taxonomy store settings.
type DBConfig struct {
	// Path is the SQLite database file. Empty means the default
	// location under the data directory.
	Path string `mapstructure:"path" yaml:"path"`

	// SnapshotPath is the bundled taxonomy snapshot (tar.gz of CSV
	// exports) used by bulk load.
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path"`

	// BatchSize is the number of rows per multi-row insert during
	// bulk load. Larger batches are faster but use more memory; the
	// store caps the value to stay under SQLite's bound-parameter
	// limit.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Language selects which vernacular names the FTS search matches.
	Language string `mapstructure:"language" yaml:"language"`
}

// APIConfig contains remote API client settings.
type APIConfig struct {
	// BaseURL of the taxonomy service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Timeout for a single HTTP request.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RetryAttempts is the number of tries for a transient failure
	// before RemoteError surfaces to the caller.
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts"`

	// RetryDelay is the base delay of the exponential backoff between
	// attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// TaggingConfig selects generated metadata categories.
type TaggingConfig struct {
	// Basic emits plain keywords (common names of the chain).
	Basic bool `mapstructure:"basic" yaml:"basic"`

	// Structured emits taxonomy:{rank}={name} keywords.
	Structured bool `mapstructure:"structured" yaml:"structured"`

	// Hierarchical emits pipe-delimited keyword trees.
	Hierarchical bool `mapstructure:"hierarchical" yaml:"hierarchical"`

	// CommonNames includes preferred common names in keywords.
	CommonNames bool `mapstructure:"common_names" yaml:"common_names"`

	// CreateSidecar creates a new .xmp sidecar when none exists.
	CreateSidecar bool `mapstructure:"create_sidecar" yaml:"create_sidecar"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format" yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'.
	Level string `mapstructure:"level" yaml:"level"`
}

// New creates a Config with sensible default values.
func New() *Config {
	return &Config{
		DB: DBConfig{
			BatchSize: 2_000,
			Language:  "english",
		},
		API: APIConfig{
			BaseURL:       "https://api.inaturalist.org/v1",
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    250 * time.Millisecond,
		},
		Tagging: TaggingConfig{
			Basic:        true,
			Structured:   true,
			Hierarchical: true,
			CommonNames:  true,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		JobsNumber: runtime.NumCPU(),
	}
}

// Defaults is an alias for New, used where the intent is "no config
// file found, fall back to defaults".
func Defaults() *Config {
	return New()
}
