package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/palantir/palantir-compute-module-data-joiner/internal/mockfoundry"
	"github.com/palantir/palantir-compute-module-data-joiner/pkg/foundry"
	"github.com/palantir/palantir-compute-module-data-joiner/pkg/table"
)

func writeCSVFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestRunLocal_JoinsTwoCSVFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	leftPath := writeCSVFile(t, dir, "left.csv", "id,prediction\n1,0.9\n2,0.4\n")
	rightPath := writeCSVFile(t, dir, "right.csv", "id,label\n2,neg\n1,pos\n")
	outPath := filepath.Join(dir, "joined.csv")

	if err := RunLocal(leftPath, "id", rightPath, "id", outPath); err != nil {
		t.Fatalf("RunLocal: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "id,prediction,label\n1,0.9,pos\n2,0.4,neg\n"
	if string(got) != want {
		t.Fatalf("output mismatch:\n--- got ---\n%s\n--- want ---\n%s\n", string(got), want)
	}
}

func TestRunLocal_MissingJoinColumn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	leftPath := writeCSVFile(t, dir, "left.csv", "id,prediction\n1,0.9\n")
	rightPath := writeCSVFile(t, dir, "right.csv", "id,label\n1,pos\n")
	outPath := filepath.Join(dir, "joined.csv")

	err := RunLocal(leftPath, "record_id", rightPath, "id", outPath)
	var invalid *table.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "left_input_data") {
		t.Fatalf("error should name the left dataset: %v", err)
	}
}

func TestRunLocal_MissingInputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rightPath := writeCSVFile(t, dir, "right.csv", "id,label\n1,pos\n")

	err := RunLocal(filepath.Join(dir, "missing.csv"), "id", rightPath, "id", filepath.Join(dir, "out.csv"))
	if err == nil {
		t.Fatalf("expected error for missing input file")
	}
	if !strings.Contains(err.Error(), "read left_input_data") {
		t.Fatalf("error should name the failing input: %v", err)
	}
}

func TestJoinTables_DuplicateOutputColumns(t *testing.T) {
	t.Parallel()

	left, err := table.New(
		table.Column{Name: "id", Values: []any{"1"}},
		table.Column{Name: "score", Values: []any{"0.9"}},
	)
	if err != nil {
		t.Fatalf("new left table: %v", err)
	}
	right, err := table.New(
		table.Column{Name: "id", Values: []any{"1"}},
		table.Column{Name: "score", Values: []any{"0.8"}},
	)
	if err != nil {
		t.Fatalf("new right table: %v", err)
	}

	_, err = joinTables(left, "id", right, "id")
	if err == nil {
		t.Fatalf("expected duplicate column error")
	}
	if !strings.Contains(err.Error(), "duplicate column names found") {
		t.Fatalf("unexpected error: %v", err)
	}
	var invalid *table.InvalidInputError
	if errors.As(err, &invalid) {
		t.Fatalf("duplicate columns should not be an invalid-input error: %v", err)
	}
}

func TestJoinTables_EmptyResult(t *testing.T) {
	t.Parallel()

	left, err := table.New(table.Column{Name: "id", Values: []any{"1"}})
	if err != nil {
		t.Fatalf("new left table: %v", err)
	}
	right, err := table.New(table.Column{Name: "id", Values: []any{"2"}})
	if err != nil {
		t.Fatalf("new right table: %v", err)
	}

	_, err = joinTables(left, "id", right, "id")
	var invalid *table.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "empty data asset") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newFoundryEnv(t *testing.T, srv *mockfoundry.Server, aliases map[string]foundry.DatasetRef) foundry.Env {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return foundry.Env{
		Services: foundry.Services{APIGateway: ts.URL + "/api"},
		Token:    "test-token",
		Aliases:  aliases,
	}
}

func TestRunFoundry_EndToEnd(t *testing.T) {
	t.Parallel()

	inputDir := t.TempDir()
	uploadDir := t.TempDir()

	leftRID := "ri.foundry.main.dataset.left"
	rightRID := "ri.foundry.main.dataset.right"
	outputRID := "ri.foundry.main.dataset.output"

	writeCSVFile(t, inputDir, leftRID+".csv", "id,prediction\n1,0.9\n2,0.4\n")
	writeCSVFile(t, inputDir, rightRID+".csv", "id,label\n1,pos\n2,neg\n")

	srv := mockfoundry.New(inputDir, uploadDir)
	srv.RequireBearerToken("test-token")
	env := newFoundryEnv(t, srv, map[string]foundry.DatasetRef{
		"left_input_data":    {RID: leftRID, Branch: "master"},
		"right_input_data":   {RID: rightRID, Branch: "master"},
		"joined_output_data": {RID: outputRID, Branch: "master"},
	})

	spec := FoundryJoinSpec{
		LeftAlias:   "left_input_data",
		LeftColumn:  "id",
		RightAlias:  "right_input_data",
		RightColumn: "id",
		OutputAlias: "joined_output_data",
	}
	if err := RunFoundry(context.Background(), env, spec, Options{}); err != nil {
		t.Fatalf("RunFoundry: %v", err)
	}

	uploads := srv.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	if uploads[0].DatasetRID != outputRID {
		t.Fatalf("upload dataset = %q, want %q", uploads[0].DatasetRID, outputRID)
	}
	if uploads[0].FilePath != "joined_data.csv" {
		t.Fatalf("upload path = %q, want joined_data.csv", uploads[0].FilePath)
	}
	want := "id,prediction,label\n1,0.9,pos\n2,0.4,neg\n"
	if string(uploads[0].Bytes) != want {
		t.Fatalf("uploaded csv mismatch:\n--- got ---\n%s\n--- want ---\n%s\n", string(uploads[0].Bytes), want)
	}
}

func TestRunFoundry_ReusesOpenOutputTransaction(t *testing.T) {
	t.Parallel()

	inputDir := t.TempDir()
	uploadDir := t.TempDir()

	leftRID := "ri.foundry.main.dataset.left"
	rightRID := "ri.foundry.main.dataset.right"
	outputRID := "ri.foundry.main.dataset.output"

	writeCSVFile(t, inputDir, leftRID+".csv", "id,prediction\n1,0.9\n")
	writeCSVFile(t, inputDir, rightRID+".csv", "id,label\n1,pos\n")

	srv := mockfoundry.New(inputDir, uploadDir)
	openTxn := srv.OpenTransaction(outputRID)

	env := newFoundryEnv(t, srv, map[string]foundry.DatasetRef{
		"left_input_data":    {RID: leftRID, Branch: "master"},
		"right_input_data":   {RID: rightRID, Branch: "master"},
		"joined_output_data": {RID: outputRID, Branch: "master"},
	})

	spec := FoundryJoinSpec{
		LeftAlias:   "left_input_data",
		LeftColumn:  "id",
		RightAlias:  "right_input_data",
		RightColumn: "id",
		OutputAlias: "joined_output_data",
	}
	if err := RunFoundry(context.Background(), env, spec, Options{}); err != nil {
		t.Fatalf("RunFoundry: %v", err)
	}

	uploads := srv.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	if uploads[0].TxnID != openTxn {
		t.Fatalf("upload txn = %q, want reused open txn %q", uploads[0].TxnID, openTxn)
	}
}

func TestRunFoundry_MissingAlias(t *testing.T) {
	t.Parallel()

	srv := mockfoundry.New(t.TempDir(), t.TempDir())
	env := newFoundryEnv(t, srv, map[string]foundry.DatasetRef{})

	err := RunFoundry(context.Background(), env, FoundryJoinSpec{
		LeftAlias:   "left_input_data",
		LeftColumn:  "id",
		RightAlias:  "right_input_data",
		RightColumn: "id",
		OutputAlias: "joined_output_data",
	}, Options{})
	if err == nil {
		t.Fatalf("expected error for missing alias")
	}
	if !strings.Contains(err.Error(), "RESOURCE_ALIAS_MAP") {
		t.Fatalf("unexpected error: %v", err)
	}
}
