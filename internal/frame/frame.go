// Package frame provides the tabular result type returned by governed
// queries. Frames can be inspected and computed over inside a session, but
// every serialization method is denied.
package frame

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/upb/governed-notebook/internal/numeric"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services"
)

// displayRows caps how many rows String renders
const displayRows = 20

// Frame is an in-memory table of named columns
type Frame struct {
	columns []string
	rows    [][]any
	guard   models.ExportGuard
}

// New builds a frame from columns and rows. Row values are copied.
func New(guard models.ExportGuard, columns []string, rows [][]any) (*Frame, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(r), len(columns))
		}
	}
	f := &Frame{
		columns: append([]string(nil), columns...),
		rows:    make([][]any, len(rows)),
		guard:   guard,
	}
	for i, r := range rows {
		f.rows[i] = append([]any(nil), r...)
	}
	return f, nil
}

// FromRows materializes a result set. The caller still owns rows.
func FromRows(rows *sql.Rows, guard models.ExportGuard) (*Frame, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	f := &Frame{columns: columns, guard: guard}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		f.rows = append(f.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return f, nil
}

// Columns returns the column names
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.rows)
}

// Row returns a copy of row i
func (f *Frame) Row(i int) []any {
	return append([]any(nil), f.rows[i]...)
}

// Column returns the values of the named column
func (f *Frame) Column(name string) ([]any, error) {
	idx := f.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]any, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Head returns a frame with at most the first n rows
func (f *Frame) Head(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	if n < 0 {
		n = 0
	}
	head, _ := New(f.guard, f.columns, f.rows[:n])
	return head
}

// Floats converts a numeric column into an array. NULLs are rejected.
func (f *Frame) Floats(name string) (*numeric.Array, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(col))
	for i, v := range col {
		fv, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		values[i] = fv
	}
	return numeric.NewGuarded(f.guard, values...), nil
}

// String renders up to displayRows rows as an aligned table
func (f *Frame) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(f.columns, "\t"))
	for i, r := range f.rows {
		if i == displayRows {
			break
		}
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = formatValue(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	if len(f.rows) > displayRows {
		fmt.Fprintf(&sb, "... %d more rows\n", len(f.rows)-displayRows)
	}
	fmt.Fprintf(&sb, "[%d rows x %d columns]", len(f.rows), len(f.columns))
	return sb.String()
}

// ToCSV is denied
func (f *Frame) ToCSV(path string) error {
	return f.deny(models.OperationSerializeCSV)
}

// ToExcel is denied
func (f *Frame) ToExcel(path string) error {
	return f.deny(models.OperationSerializeExcel)
}

// ToJSON is denied
func (f *Frame) ToJSON(path string) error {
	return f.deny(models.OperationSerializeJSON)
}

// ToParquet is denied
func (f *Frame) ToParquet(path string) error {
	return f.deny(models.OperationSerializeParquet)
}

// ToPickle is denied
func (f *Frame) ToPickle(path string) error {
	return f.deny(models.OperationSerializePickle)
}

// MarshalJSON is denied so encoding/json cannot stand in for ToJSON
func (f *Frame) MarshalJSON() ([]byte, error) {
	return nil, f.deny(models.OperationSerializeJSON)
}

func (f *Frame) deny(op models.GovernedOperation) error {
	if f != nil && f.guard != nil {
		return f.guard.Deny(op, "")
	}
	return services.NewExportDenied(string(op), "")
}

func (f *Frame) columnIndex(name string) int {
	for i, c := range f.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, fmt.Errorf("null value")
	default:
		return 0, fmt.Errorf("non-numeric value of type %T", v)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
