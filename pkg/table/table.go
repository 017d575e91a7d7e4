package table

import "fmt"

// Column is one named column of row values. Values are scalars (string, bool,
// numeric) or nil for a missing value.
type Column struct {
	Name   string
	Values []any
}

// Table is an ordered collection of named columns, all holding the same
// number of rows. Tables are never mutated after construction; operations
// that transform a table allocate a new one.
//
// Duplicate column names are representable on purpose: a join of two inputs
// that share a non-key column name produces one, and the caller-side
// duplicate guard is responsible for rejecting it before any write.
type Table struct {
	columns []Column
}

// New constructs a Table from columns. All columns must be named and hold the
// same number of rows.
func New(columns ...Column) (*Table, error) {
	rows := -1
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column name is required")
		}
		if rows == -1 {
			rows = len(c.Values)
			continue
		}
		if len(c.Values) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), rows)
		}
	}
	return &Table{columns: columns}, nil
}

// NumRows returns the row count. A table with no columns has zero rows.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Values)
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Columns returns the column names in schema order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// HasColumn reports whether name is in the table's schema.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Column returns the first column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DuplicateColumns returns every column name that appears more than once, in
// first-seen order.
func (t *Table) DuplicateColumns() []string {
	seen := make(map[string]int, len(t.columns))
	var dups []string
	for _, c := range t.columns {
		seen[c.Name]++
		if seen[c.Name] == 2 {
			dups = append(dups, c.Name)
		}
	}
	return dups
}
