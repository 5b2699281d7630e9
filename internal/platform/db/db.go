package db

import (
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// OpenMemory opens a private in-memory SQLite database.
// Nothing is written to disk; the data is gone once the handle is closed.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, eris.Wrap(err, "openDB: open in-memory sqlite database")
	}

	// Every :memory: connection is a separate database, so the pool is pinned
	// to a single connection that never expires.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "openDB: verify sqlite connection")
	}

	return db, nil
}
