// Package postgres implements an extract.Extractor for PostgreSQL/PostGIS
// using pgx v5. This is the primary production backend; geometry columns
// come back as WKB hex strings when selected with ::text, or as []byte
// otherwise.
package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"stacbuild/internal/extract"
)

func init() {
	extract.Register("postgres", func(ctx context.Context, dsn string) (extract.Extractor, error) {
		return New(ctx, dsn)
	})
	// SQLAlchemy-style connection strings are accepted too.
	extract.Register("postgresql", func(ctx context.Context, dsn string) (extract.Extractor, error) {
		return New(ctx, dsn)
	})
}

// Extractor is a pgx-backed extract.Extractor.
type Extractor struct {
	pool *pgxpool.Pool
}

// New opens a connection pool for the given DSN and pings it to fail fast on
// invalid connection strings.
func New(ctx context.Context, dsn string) (*Extractor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Extractor{pool: pool}, nil
}

// Select executes the extraction query and materializes all rows.
func (e *Extractor) Select(ctx context.Context, q extract.Query) ([][]any, error) {
	rows, err := e.pool.Query(ctx, q.SQL(extract.LimitSuffix))
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", q.Table, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", q.Table, err)
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = normalizeValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows %s: %w", q.Table, err)
	}
	return out, nil
}

// Close releases the pool.
func (e *Extractor) Close() {
	e.pool.Close()
}

// normalizeValue maps pgx driver types onto the plain Go types the
// normalizer works with. Numeric columns keep full precision as a decimal
// string; the declared "decimal" attribute kind converts them downstream.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case pgtype.Numeric:
		if !n.Valid {
			return nil
		}
		if n.NaN {
			return "NaN"
		}
		return numericString(n)
	case [16]byte:
		// uuid columns
		return fmt.Sprintf("%x-%x-%x-%x-%x", n[0:4], n[4:6], n[6:8], n[8:10], n[10:16])
	case []byte:
		return string(n)
	default:
		return v
	}
}

// numericString renders a pgtype.Numeric as a plain decimal string.
func numericString(n pgtype.Numeric) string {
	i := new(big.Int).Set(n.Int)
	if n.Exp >= 0 {
		i.Mul(i, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
		return i.String()
	}
	r := new(big.Rat).SetInt(i)
	r.Quo(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)))
	return r.FloatString(int(-n.Exp))
}
