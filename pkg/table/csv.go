package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV reads a CSV document into a Table. The first record is the schema;
// every cell loads as a string. Ragged rows are rejected by the reader.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	values := make([][]any, len(header))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		for i, cell := range rec {
			values[i] = append(values[i], cell)
		}
	}

	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{Name: name, Values: values[i]}
	}
	return New(columns...)
}

// WriteCSV writes the table as a CSV document, header first, preserving
// schema order. Nil values render as empty cells.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}

	rec := make([]string, t.NumColumns())
	for row := 0; row < t.NumRows(); row++ {
		for i, c := range t.columns {
			rec[i] = formatValue(c.Values[row])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
