package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var pgMigrations embed.FS

// Postgres writes straight to a Postgres news table, for deployments that
// reach the database directly instead of through the Supabase REST API.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects, pings and applies pending migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := migratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func migratePostgres(db *sql.DB) error {
	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

const pgUpsert = `INSERT INTO news
	(date, emoji, title, summary, content, source, url, content_md, content_html, published_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (url) DO UPDATE SET
		date = EXCLUDED.date,
		emoji = EXCLUDED.emoji,
		title = EXCLUDED.title,
		summary = EXCLUDED.summary,
		content = EXCLUDED.content,
		source = EXCLUDED.source,
		content_md = EXCLUDED.content_md,
		content_html = EXCLUDED.content_html,
		published_at = EXCLUDED.published_at,
		updated_at = now()`

// Upsert writes the whole batch in one transaction; any row failure rolls
// back the batch.
func (p *Postgres) Upsert(ctx context.Context, records []Record) error {
	if err := validate(records); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pgUpsert)
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

const pgColumns = `id, date, emoji, title, summary, content, source, url, content_md, content_html, published_at`

// List returns the newest records.
func (p *Postgres) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+pgColumns+` FROM news ORDER BY published_at DESC NULLS LAST, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Get returns a single record by ID.
func (p *Postgres) Get(ctx context.Context, id int64) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pgColumns+` FROM news WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
