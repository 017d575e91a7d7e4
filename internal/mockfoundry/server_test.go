package mockfoundry_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/palantir/palantir-compute-module-data-joiner/internal/mockfoundry"
	"github.com/palantir/palantir-compute-module-data-joiner/pkg/foundry"
)

func newServerAndClient(t *testing.T) (*mockfoundry.Server, *foundry.Client) {
	t.Helper()

	srv := mockfoundry.New(t.TempDir(), t.TempDir())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := foundry.NewClient(ts.URL+"/api", "dummy-token", "", 0)
	if err != nil {
		t.Fatalf("new foundry client: %v", err)
	}
	return srv, client
}

func TestMockFoundry_CommitUpdatesReadTable(t *testing.T) {
	t.Parallel()

	srv, client := newServerAndClient(t)

	ctx := context.Background()
	datasetRID := "ri.foundry.main.dataset.99999999-9999-9999-9999-999999999999"

	txnID, err := client.CreateTransaction(ctx, datasetRID, "master")
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	want := []byte("id,label\n1,ok\n")
	if err := client.UploadFile(ctx, datasetRID, txnID, "joined_data.csv", "text/csv", want); err != nil {
		t.Fatalf("upload file: %v", err)
	}
	if err := client.CommitTransaction(ctx, datasetRID, txnID); err != nil {
		t.Fatalf("commit transaction: %v", err)
	}

	got, err := client.ReadTableCSV(ctx, datasetRID, "master")
	if err != nil {
		t.Fatalf("readTable: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("readTable output mismatch:\n--- got ---\n%s\n--- want ---\n%s\n", string(got), string(want))
	}

	uploads := srv.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	if uploads[0].FilePath != "joined_data.csv" {
		t.Fatalf("upload path = %q", uploads[0].FilePath)
	}
}

func TestMockFoundry_RejectUploadDatasetMismatch(t *testing.T) {
	t.Parallel()

	_, client := newServerAndClient(t)

	ctx := context.Background()
	ridA := "ri.foundry.main.dataset.aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	ridB := "ri.foundry.main.dataset.bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"

	txnID, err := client.CreateTransaction(ctx, ridA, "master")
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	err = client.UploadFile(ctx, ridB, txnID, "joined_data.csv", "text/csv", []byte("a\n1\n"))
	if err == nil {
		t.Fatalf("expected upload to fail for dataset mismatch")
	}
	if !strings.Contains(err.Error(), "unknown transaction") {
		t.Fatalf("expected unknown transaction error, got: %v", err)
	}
}

func TestMockFoundry_RejectCommitWithoutUpload(t *testing.T) {
	t.Parallel()

	_, client := newServerAndClient(t)

	ctx := context.Background()
	rid := "ri.foundry.main.dataset.cccccccc-cccc-cccc-cccc-cccccccccccc"

	txnID, err := client.CreateTransaction(ctx, rid, "master")
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	err = client.CommitTransaction(ctx, rid, txnID)
	if err == nil {
		t.Fatalf("expected commit to fail with no uploaded files")
	}
	if !strings.Contains(err.Error(), "no uploaded files") {
		t.Fatalf("expected no-files error, got: %v", err)
	}
}

func TestMockFoundry_SecondCreateConflictsWhileOpen(t *testing.T) {
	t.Parallel()

	_, client := newServerAndClient(t)

	ctx := context.Background()
	rid := "ri.foundry.main.dataset.dddddddd-dddd-dddd-dddd-dddddddddddd"

	first, err := client.CreateTransaction(ctx, rid, "master")
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	_, err = client.CreateTransaction(ctx, rid, "master")
	if !foundry.IsOpenTransactionConflict(err) {
		t.Fatalf("expected open-transaction conflict, got: %v", err)
	}

	// After commit the dataset accepts new transactions again.
	if err := client.UploadFile(ctx, rid, first, "joined_data.csv", "text/csv", []byte("a\n1\n")); err != nil {
		t.Fatalf("upload file: %v", err)
	}
	if err := client.CommitTransaction(ctx, rid, first); err != nil {
		t.Fatalf("commit transaction: %v", err)
	}
	if _, err := client.CreateTransaction(ctx, rid, "master"); err != nil {
		t.Fatalf("create after commit: %v", err)
	}
}
