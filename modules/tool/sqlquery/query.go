package sqlquery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrTooManyRows is returned when a result set exceeds the row cap.
var ErrTooManyRows = errors.New("tool.sql: result exceeds row limit")

// Row is one result row keyed by column name.
type Row map[string]any

// Query runs q and returns its rows. Byte slices become strings and times
// are formatted as RFC 3339 so rows encode to readable JSON. A maxRows of
// zero means no cap.
func Query(ctx context.Context, db *sql.DB, q string, maxRows int) ([]Row, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		if maxRows > 0 && len(out) == maxRows {
			return nil, fmt.Errorf("%w of %d", ErrTooManyRows, maxRows)
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			r[c] = normalize(vals[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return x
	}
}
