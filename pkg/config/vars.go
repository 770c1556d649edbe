package config

import (
	"path/filepath"
)

// AppName is used in generating file system paths.
var AppName = "taxtag"

// SchemaVersion is the taxonomy store schema version. Bulk load skips
// snapshots that are already imported for the current version.
var SchemaVersion = "1"

// ConfigDir returns the directory path for configuration files,
// ~/.config/taxtag by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// DataDir returns the directory path for the taxonomy database,
// ~/.local/share/taxtag by default.
func DataDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName)
}

// DefaultDBPath returns the default SQLite database location.
func DefaultDBPath(homeDir string) string {
	return filepath.Join(DataDir(homeDir), "taxtag.db")
}

// ConfigFilePath returns the full path to the taxtag.yaml file.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "taxtag.yaml")
}
