// Package datastore persists sources, their schedules and page actions, the
// per-check result log, and the snapshot history used as comparison
// baselines.
package datastore

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/sitevigil/sitevigil/internal/errorx"
)

// DB wraps the SQL database connection shared by the stores.
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewDB opens (creating if needed) the database at path, applies pragmas,
// and ensures the schema is current.
func NewDB(path string, log zerolog.Logger) (*DB, error) {
	log = log.With().Str("component", "datastore").Logger()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errorx.Wrapf(err, "failed to create database directory for %s", path)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errorx.Wrapf(err, "failed to open database %s", path)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errorx.Wrapf(err, "failed to apply %q", pragma)
		}
	}

	d := &DB{db: conn, log: log}
	if err := d.initSchema(); err != nil {
		conn.Close()
		return nil, errorx.Wrap(err, "failed to initialize schema")
	}
	if err := d.migrateLegacyLists(); err != nil {
		conn.Close()
		return nil, errorx.Wrap(err, "failed to migrate legacy schedule lists")
	}

	log.Info().Str("path", path).Msg("Database initialized")
	return d, nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
