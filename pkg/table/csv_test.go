package table_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/palantir/palantir-compute-module-data-joiner/pkg/table"
)

func TestReadCSV(t *testing.T) {
	t.Run("header becomes schema", func(t *testing.T) {
		in := "id,a\n1,x\n2,y\n"
		tbl, err := table.ReadCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"id", "a"}, tbl.Columns()); diff != "" {
			t.Fatalf("columns mismatch (-want +got):\n%s", diff)
		}
		if tbl.NumRows() != 2 {
			t.Fatalf("want 2 rows, got %d", tbl.NumRows())
		}
		col, _ := tbl.Column("a")
		if diff := cmp.Diff([]any{"x", "y"}, col.Values); diff != "" {
			t.Fatalf("values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("header only yields zero rows", func(t *testing.T) {
		tbl, err := table.ReadCSV(strings.NewReader("id,a\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tbl.NumRows() != 0 {
			t.Fatalf("want 0 rows, got %d", tbl.NumRows())
		}
	})

	t.Run("ragged row errors", func(t *testing.T) {
		_, err := table.ReadCSV(strings.NewReader("id,a\n1\n"))
		if err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("empty input errors", func(t *testing.T) {
		_, err := table.ReadCSV(strings.NewReader(""))
		if err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl, err := table.New(
		table.Column{Name: "id", Values: []any{"1", "2"}},
		table.Column{Name: "a", Values: []any{"x", ""}},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("write: %v", err)
	}

	back, err := table.ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if diff := cmp.Diff(tbl.Columns(), back.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	for _, name := range tbl.Columns() {
		want, _ := tbl.Column(name)
		got, _ := back.Column(name)
		if diff := cmp.Diff(want.Values, got.Values); diff != "" {
			t.Fatalf("column %q mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestWriteCSVNilRendersEmpty(t *testing.T) {
	tbl, err := table.New(table.Column{Name: "a", Values: []any{nil, "x"}})
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, want := buf.String(), "a\n\nx\n"; got != want {
		t.Fatalf("output mismatch: got %q want %q", got, want)
	}
}
