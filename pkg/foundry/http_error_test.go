package foundry

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func fakeResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
	}
}

func TestNewHTTPError_ParsesConjureEnvelope(t *testing.T) {
	t.Parallel()

	body := []byte(`{"errorCode":"CONFLICT","errorName":"OpenTransactionAlreadyExists","errorInstanceId":"abc-123"}`)
	err := newHTTPError("createTransaction", fakeResponse(409), body)

	he, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if he.ErrorName != "OpenTransactionAlreadyExists" || he.ErrorCode != "CONFLICT" || he.ErrorInstanceID != "abc-123" {
		t.Fatalf("unexpected envelope fields: %+v", he)
	}
	if !IsOpenTransactionConflict(err) {
		t.Fatalf("expected IsOpenTransactionConflict to be true")
	}
	if he.Snippet != "" {
		t.Fatalf("expected no snippet when envelope parses, got %q", he.Snippet)
	}
}

func TestNewHTTPError_NonConjureBodyIsRedactedAndTruncated(t *testing.T) {
	t.Parallel()

	body := []byte("internal failure Bearer eyJhbGciOiJIUzI1NiJ9.secret " + strings.Repeat("x", 500))
	err := newHTTPError("readTable", fakeResponse(500), body)

	he, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if strings.Contains(he.Snippet, "eyJhbGciOiJIUzI1NiJ9") {
		t.Fatalf("snippet leaks bearer token: %q", he.Snippet)
	}
	if len(he.Snippet) > 300 {
		t.Fatalf("snippet too long: %d bytes", len(he.Snippet))
	}
	if !strings.HasSuffix(he.Snippet, "...") {
		t.Fatalf("expected truncation marker, got %q", he.Snippet)
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !IsNotFound(&HTTPError{StatusCode: 404}) {
		t.Fatalf("expected 404 to be not-found")
	}
	if IsNotFound(&HTTPError{StatusCode: 409}) {
		t.Fatalf("409 should not be not-found")
	}
	if IsNotFound(nil) {
		t.Fatalf("nil should not be not-found")
	}
}

func TestHTTPError_ErrorStringIncludesOpAndStatus(t *testing.T) {
	t.Parallel()

	he := &HTTPError{Op: "commitTransaction", StatusCode: 409, Status: "409 Conflict", ErrorName: "OpenTransactionAlreadyExists"}
	msg := he.Error()
	for _, want := range []string{"op=commitTransaction", "status=409 Conflict", "errorName=OpenTransactionAlreadyExists"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error message %q missing %q", msg, want)
		}
	}
}
