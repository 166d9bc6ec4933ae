// Package extract contains the storage-agnostic contracts for reading
// dataset rows: the query shape built from a collection config, the
// Extractor interface, and a factory where concrete database backends
// register themselves at init time (see extract/all).
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoRows is returned when an extraction query yields zero rows. A dataset
// collection is never silently produced empty, so this aborts the run.
var ErrNoRows = errors.New("extract: query returned no rows")

// LimitStyle selects how a backend expresses the row limit.
type LimitStyle int

const (
	// LimitSuffix appends "LIMIT n" (postgres, sqlite).
	LimitSuffix LimitStyle = iota
	// TopPrefix injects "TOP n" after SELECT (mssql).
	TopPrefix
)

// Query is one filtered read against a dataset table. Columns, table and
// predicate come from the collection config; the designated date column is
// always required to be non-null.
type Query struct {
	Columns    []string
	Table      string
	DateColumn string
	Where      string
	Limit      int
}

// SQL renders the query for the given limit style.
func (q Query) SQL(style LimitStyle) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Limit > 0 && style == TopPrefix {
		fmt.Fprintf(&b, "TOP %d ", q.Limit)
	}
	b.WriteString(strings.Join(q.Columns, ","))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)
	b.WriteString(" WHERE ")
	b.WriteString(q.DateColumn)
	b.WriteString(" IS NOT NULL")
	if strings.TrimSpace(q.Where) != "" {
		fmt.Fprintf(&b, " AND (%s)", q.Where)
	}
	if q.Limit > 0 && style == LimitSuffix {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

// Extractor executes extraction queries against one database connection,
// opened once per run and held for the run's duration.
type Extractor interface {
	// Select executes q and returns the raw rows, one []any per row aligned
	// to q.Columns.
	Select(ctx context.Context, q Query) ([][]any, error)
	// Close releases the connection.
	Close()
}

// Select runs q through ex and enforces the non-empty result contract.
func Select(ctx context.Context, ex Extractor, q Query) ([][]any, error) {
	if len(q.Columns) == 0 {
		return nil, fmt.Errorf("extract: no columns configured")
	}
	if strings.TrimSpace(q.Table) == "" {
		return nil, fmt.Errorf("extract: no table configured")
	}
	if strings.TrimSpace(q.DateColumn) == "" {
		return nil, fmt.Errorf("extract: no date column configured")
	}
	rows, err := ex.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w (table %s)", ErrNoRows, q.Table)
	}
	return rows, nil
}

// Factory opens an Extractor for the given DSN.
type Factory func(ctx context.Context, dsn string) (Extractor, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) a backend factory for the given database
// kind. It is typically called from backend packages' init() functions.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens an Extractor for the configured database kind. The kind must
// have been registered (import extract/all for the built-in backends).
func New(ctx context.Context, kind, dsn string) (Extractor, error) {
	regMu.RLock()
	fn, ok := factories[kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("extract: no backend registered for dbtype %q", kind)
	}
	return fn(ctx, dsn)
}
