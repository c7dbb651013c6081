package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/yuzuwvle/yuzuwhale/internal/config"
)

// Open returns the store selected by cfg.Sink.Kind.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Sink.Kind {
	case config.SinkSupabase:
		return NewSupabase(cfg.Sink.SupabaseURL, cfg.Sink.SupabaseKey), nil
	case config.SinkPostgres:
		return OpenPostgres(ctx, cfg.Sink.DatabaseURL)
	case config.SinkSQLite:
		return OpenSQLite(SQLitePath(cfg))
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink.Kind)
	}
}

// SQLitePath is where the sqlite sink keeps its database.
func SQLitePath(cfg *config.Config) string {
	return filepath.Join(cfg.GetDataDir(), "news.db")
}
