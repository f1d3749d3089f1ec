package db

import (
	"context"
	"fmt"
	"slices"

	"github.com/yourorg/csvkit/pkg/csvwriter"
)

// RowSource is the subset of *sql.Rows read by WriteRows.
type RowSource interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// WriteRows copies a result set into w. The column names become the header
// and, when writeHeader is set, are written first. Rows are written
// positionally so repeated column names keep their own values. It returns the
// number of rows copied.
func WriteRows(rows RowSource, w *csvwriter.Writer, writeHeader bool) (int, error) {
	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read columns: %w", err)
	}

	w.SetHeader(columns)
	if writeHeader {
		if err := w.WriteHeader(); err != nil {
			return 0, err
		}
	}

	values := make([]interface{}, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return count, fmt.Errorf("failed to scan row %d: %w", count+1, err)
		}

		if err := w.WriteRow(csvwriter.Positional(slices.Clone(values))); err != nil {
			return count, err
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return count, nil
}

// ExportQuery runs query against db and writes the result set into w.
func ExportQuery(ctx context.Context, db DB, w *csvwriter.Writer, writeHeader bool, query string, args ...interface{}) (int, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to run export query: %w", err)
	}
	defer rows.Close()

	return WriteRows(rows, w, writeHeader)
}
