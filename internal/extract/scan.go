package extract

import "database/sql"

// ScanAll drains a database/sql result set into [][]any rows. []byte values
// are converted to string so that the normalizer sees uniform raw values
// across backends.
func ScanAll(rows *sql.Rows, ncols int) ([][]any, error) {
	var out [][]any
	for rows.Next() {
		vals := make([]any, ncols)
		ptrs := make([]any, ncols)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}
