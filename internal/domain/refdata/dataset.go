// Package refdata holds the in-memory reference dataset the engine matches
// against. Rows are flat string maps keyed by source column name; values are
// kept verbatim and normalized only at scoring time.
package refdata

// Row is a single reference record.
type Row map[string]string

// Dataset is an ordered, immutable-by-convention collection of reference
// rows sharing a column set.
type Dataset struct {
	columns map[string]struct{}
	order   []string
	rows    []Row
}

// New builds a Dataset. The column list fixes the header order reported by
// Columns; rows may omit columns (missing values read back as "").
func New(columns []string, rows []Row) *Dataset {
	set := make(map[string]struct{}, len(columns))
	order := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, dup := set[c]; dup {
			continue
		}
		set[c] = struct{}{}
		order = append(order, c)
	}
	return &Dataset{columns: set, order: order, rows: rows}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// Row returns the row at index i.
func (d *Dataset) Row(i int) Row { return d.rows[i] }

// Value returns the value of a column in row i ("" when absent).
func (d *Dataset) Value(i int, column string) string { return d.rows[i][column] }

// HasColumn reports whether the dataset declares the column.
func (d *Dataset) HasColumn(column string) bool {
	if d == nil {
		return false
	}
	_, ok := d.columns[column]
	return ok
}

// Columns returns the declared column names in header order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}
