package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is a local news mirror with the same upsert semantics as the
// hosted table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrateSQLite(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLite{conn: conn}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

const sqliteUpsert = `INSERT INTO news
	(date, emoji, title, summary, content, source, url, content_md, content_html, published_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		date = excluded.date,
		emoji = excluded.emoji,
		title = excluded.title,
		summary = excluded.summary,
		content = excluded.content,
		source = excluded.source,
		content_md = excluded.content_md,
		content_html = excluded.content_html,
		published_at = excluded.published_at,
		updated_at = datetime('now')`

// Upsert writes the whole batch in one transaction.
func (s *SQLite) Upsert(ctx context.Context, records []Record) error {
	if err := validate(records); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range Dedupe(records) {
		if _, err := stmt.ExecContext(ctx, r.Date, r.Emoji, r.Title, r.Summary, r.Content,
			r.Source, r.URL, r.ContentMD, r.ContentHTML, r.PublishedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("upserting %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

const sqliteColumns = `id, date, emoji, title, summary, content, source, url, content_md, content_html, published_at`

// List returns the newest records.
func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM news
		ORDER BY published_at IS NULL, published_at DESC, id DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Get returns a single record by ID.
func (s *SQLite) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM news WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Count returns the number of stored records.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	var publishedAt sql.NullString
	if err := row.Scan(&r.ID, &r.Date, &r.Emoji, &r.Title, &r.Summary, &r.Content,
		&r.Source, &r.URL, &r.ContentMD, &r.ContentHTML, &publishedAt); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		r.PublishedAt = &publishedAt.String
	}
	return &r, nil
}
