// Package sqlite implements an extract.Extractor over database/sql with the
// modernc SQLite driver. It exists for local development and for tests that
// need a real SQL backend without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stacbuild/internal/extract"
)

func init() {
	extract.Register("sqlite", func(ctx context.Context, dsn string) (extract.Extractor, error) {
		return New(ctx, dsn)
	})
}

// Extractor is a SQLite-backed extract.Extractor.
type Extractor struct {
	db *sql.DB
}

// New opens the SQLite database at the DSN (a file path or file: URI).
func New(ctx context.Context, dsn string) (*Extractor, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Extractor{db: db}, nil
}

// Select executes the extraction query and materializes all rows.
func (e *Extractor) Select(ctx context.Context, q extract.Query) ([][]any, error) {
	rows, err := e.db.QueryContext(ctx, q.SQL(extract.LimitSuffix))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", q.Table, err)
	}
	defer rows.Close()

	out, err := extract.ScanAll(rows, len(q.Columns))
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan %s: %w", q.Table, err)
	}
	return out, nil
}

// Close releases the connection.
func (e *Extractor) Close() {
	_ = e.db.Close()
}
