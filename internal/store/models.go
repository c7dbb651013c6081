package store

import (
	"context"
	"errors"
)

// Record is one row of the news table. URL is the natural key: writing a
// record whose URL already exists overwrites every other column.
type Record struct {
	ID          int64   `json:"id,omitempty"`
	Date        string  `json:"date"`
	Emoji       string  `json:"emoji"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Content     string  `json:"content"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	ContentMD   string  `json:"content_md"`
	ContentHTML string  `json:"content_html"`
	PublishedAt *string `json:"published_at"`
}

// Sink accepts one batch of records per sync run.
type Sink interface {
	Upsert(ctx context.Context, records []Record) error
}

// Reader serves the read side used by the site and the digest.
type Reader interface {
	// List returns the newest records: published_at descending with nulls
	// last, then id descending.
	List(ctx context.Context, limit int) ([]Record, error)
	// Get returns nil, nil when no record has the given id.
	Get(ctx context.Context, id int64) (*Record, error)
}

// Store is a sink that can also be read back.
type Store interface {
	Sink
	Reader
	Close() error
}

// ErrEmptyURL is returned when a record without a URL reaches a sink.
var ErrEmptyURL = errors.New("record has empty url")

// Dedupe collapses records sharing a URL into one, keeping the position of the
// first occurrence and the values of the last. A single upsert statement may
// not touch the same conflict key twice.
func Dedupe(records []Record) []Record {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.URL]; ok {
			out[i] = r
			continue
		}
		index[r.URL] = len(out)
		out = append(out, r)
	}
	return out
}

func validate(records []Record) error {
	for _, r := range records {
		if r.URL == "" {
			return ErrEmptyURL
		}
	}
	return nil
}
