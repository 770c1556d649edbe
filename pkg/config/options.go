package config

import (
	"strings"
	"time"

	"github.com/gnames/gn"
)

// Option is a function that modifies a Config. Options validate
// inputs and reject invalid values with warnings.
type Option func(*Config)

// OptDBPath sets the SQLite database file path.
func OptDBPath(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if s != "" {
			c.DB.Path = s
		}
	}
}

// OptSnapshotPath sets the bundled taxonomy snapshot path.
func OptSnapshotPath(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if s != "" {
			c.DB.SnapshotPath = s
		}
	}
}

// OptBatchSize sets the number of rows per multi-row insert during
// bulk load.
func OptBatchSize(i int) Option {
	return func(c *Config) {
		if i <= 0 {
			gn.Warn("Batch Size must be positive, keeping %d", c.DB.BatchSize)
			return
		}
		c.DB.BatchSize = i
	}
}

// OptLanguage sets the vernacular name language for FTS search.
func OptLanguage(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if s != "" {
			c.DB.Language = s
		}
	}
}

// OptAPIBaseURL sets the remote taxonomy service URL.
func OptAPIBaseURL(s string) Option {
	s = strings.TrimSuffix(strings.TrimSpace(s), "/")
	return func(c *Config) {
		if s != "" {
			c.API.BaseURL = s
		}
	}
}

// OptAPITimeout sets the per-request HTTP timeout.
func OptAPITimeout(d time.Duration) Option {
	return func(c *Config) {
		if d <= 0 {
			gn.Warn("API Timeout must be positive, keeping %s", c.API.Timeout)
			return
		}
		c.API.Timeout = d
	}
}

// OptRetryAttempts sets the bounded retry count for remote fetches.
func OptRetryAttempts(i int) Option {
	return func(c *Config) {
		if i < 1 {
			gn.Warn("Retry Attempts must be at least 1, keeping %d",
				c.API.RetryAttempts)
			return
		}
		c.API.RetryAttempts = i
	}
}

// OptRetryDelay sets the base delay of the retry backoff.
func OptRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		if d <= 0 {
			gn.Warn("Retry Delay must be positive, keeping %s", c.API.RetryDelay)
			return
		}
		c.API.RetryDelay = d
	}
}

// OptBasicKeywords toggles plain keyword generation.
func OptBasicKeywords(b bool) Option {
	return func(c *Config) { c.Tagging.Basic = b }
}

// OptStructuredKeywords toggles taxonomy:{rank}={name} keywords.
func OptStructuredKeywords(b bool) Option {
	return func(c *Config) { c.Tagging.Structured = b }
}

// OptHierarchicalKeywords toggles pipe-delimited keyword trees.
func OptHierarchicalKeywords(b bool) Option {
	return func(c *Config) { c.Tagging.Hierarchical = b }
}

// OptCommonNames toggles inclusion of preferred common names.
func OptCommonNames(b bool) Option {
	return func(c *Config) { c.Tagging.CommonNames = b }
}

// OptCreateSidecar toggles creation of new .xmp sidecar files.
func OptCreateSidecar(b bool) Option {
	return func(c *Config) { c.Tagging.CreateSidecar = b }
}

// OptLogLevel sets the logging level.
func OptLogLevel(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		switch s {
		case "debug", "info", "warn", "error":
			c.Log.Level = s
		default:
			gn.Warn("Log Level %q is invalid, keeping %q", s, c.Log.Level)
		}
	}
}

// OptLogFormat sets the logging format.
func OptLogFormat(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		switch s {
		case "text", "json":
			c.Log.Format = s
		default:
			gn.Warn("Log Format %q is invalid, keeping %q", s, c.Log.Format)
		}
	}
}

// OptJobsNumber sets the number of concurrent workers.
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if i < 1 {
			gn.Warn("Jobs Number must be at least 1, keeping %d", c.JobsNumber)
			return
		}
		c.JobsNumber = i
	}
}

// OptHomeDir sets the application home directory (runtime only).
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if s != "" {
			c.HomeDir = s
		}
	}
}

// Update applies a slice of Option functions to the Config. This is
// the only way to modify a Config after creation.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}
