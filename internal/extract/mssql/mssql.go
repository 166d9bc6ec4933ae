// Package mssql implements an extract.Extractor for Microsoft SQL Server
// via database/sql and go-mssqldb. Row limits use TOP instead of LIMIT.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"stacbuild/internal/extract"
)

func init() {
	extract.Register("mssql", func(ctx context.Context, dsn string) (extract.Extractor, error) {
		return New(ctx, dsn)
	})
}

// Extractor is an MSSQL-backed extract.Extractor.
type Extractor struct {
	db *sql.DB
}

// New validates the DSN, opens the connection and pings it.
func New(ctx context.Context, dsn string) (*Extractor, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Extractor{db: db}, nil
}

// Select executes the extraction query and materializes all rows.
func (e *Extractor) Select(ctx context.Context, q extract.Query) ([][]any, error) {
	rows, err := e.db.QueryContext(ctx, q.SQL(extract.TopPrefix))
	if err != nil {
		return nil, fmt.Errorf("mssql: query %s: %w", q.Table, err)
	}
	defer rows.Close()

	out, err := extract.ScanAll(rows, len(q.Columns))
	if err != nil {
		return nil, fmt.Errorf("mssql: scan %s: %w", q.Table, err)
	}
	return out, nil
}

// Close releases the connection.
func (e *Extractor) Close() {
	_ = e.db.Close()
}
