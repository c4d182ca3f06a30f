// Package store persists finished runs. Two backends share the
// core.RunStore contract: SQLite for the default queryable history and
// a plain JSON directory for installs that want greppable files.
package store

import (
	"path/filepath"
	"strings"

	"github.com/adsmith-io/adsmith/internal/core"
)

// Backend names accepted by Config.Backend.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Config selects and locates a run store backend.
type Config struct {
	// Backend is "sqlite" or "json". Empty means sqlite.
	Backend string

	// Path is the database file (sqlite) or directory (json).
	Path string
}

// New creates the configured RunStore.
func New(cfg Config) (core.RunStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendSQLite
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, core.ErrValidation("STORE_PATH_MISSING", "store path must not be empty")
	}

	switch backend {
	case BackendSQLite:
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	case BackendJSON:
		return NewJSONStore(path)
	default:
		return nil, core.ErrValidation("STORE_BACKEND_UNKNOWN",
			"unknown store backend "+backend+" (want sqlite or json)")
	}
}
