package store

import (
	"database/sql"
	"fmt"
	"log"
)

// sqliteMigration represents a single schema migration step.
type sqliteMigration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// sqliteMigrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var sqliteMigrations = []sqliteMigration{
	{
		Version:     1,
		Description: "news table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS news (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL DEFAULT '',
    emoji TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    url TEXT UNIQUE NOT NULL,
    content_md TEXT NOT NULL DEFAULT '',
    content_html TEXT NOT NULL DEFAULT '',
    published_at TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "updated_at and published_at index",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
ALTER TABLE news ADD COLUMN updated_at TEXT;
CREATE INDEX IF NOT EXISTS idx_news_published_at ON news(published_at);
`)
			return err
		},
	},
}

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// latestSQLiteVersion returns the highest migration version number.
func latestSQLiteVersion() int {
	if len(sqliteMigrations) == 0 {
		return 0
	}
	return sqliteMigrations[len(sqliteMigrations)-1].Version
}

// migrateSQLite brings the schema up to the latest version, tracked in
// PRAGMA user_version.
func migrateSQLite(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}
	if current >= latestSQLiteVersion() {
		return nil
	}

	for _, m := range sqliteMigrations {
		if m.Version <= current {
			continue
		}

		log.Printf("applying migration %d: %s", m.Version, m.Description)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// modernc/sqlite does not allow setting user_version inside the transaction.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}
