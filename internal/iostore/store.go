// Package iostore implements the taxtag.Store contract on a local
// SQLite database with an FTS5 name index. This is an impure I/O
// package; the merge rules it applies are defined in pkg/taxon.
package iostore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gnames/taxtag/pkg/config"
	"github.com/gnames/taxtag/pkg/taxtag"
	_ "modernc.org/sqlite" // SQLite driver
)

// store implements taxtag.Store. Writes are serialized by mu;
// concurrent reads go straight to the connection pool (WAL mode).
type store struct {
	db  *sql.DB
	cfg *config.Config
	mu  sync.Mutex
}

// New opens (creating if needed) the taxonomy database at the path
// from cfg and ensures the schema exists.
func New(cfg *config.Config) (taxtag.Store, error) {
	path := cfg.DB.Path
	if path == "" {
		path = config.DefaultDBPath(cfg.HomeDir)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, ConnectionError(path, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ConnectionError(path, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, ConnectionError(path, err)
	}

	s := &store{db: db, cfg: cfg}
	if err = s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Opened taxonomy store", "path", path)
	return s, nil
}

// Close releases the database handle.
func (s *store) Close() error {
	return s.db.Close()
}
