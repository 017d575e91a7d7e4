package foundry

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client is a minimal HTTP client for the dataset endpoints this module uses:
// reading a dataset table as CSV and writing one back through a transaction.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a client for the Foundry API gateway.
//
// apiGatewayURL should look like "https://<stack>.palantirfoundry.com/api".
// defaultCAPath is optional and, when provided, is used as the TLS trust store.
// rateLimitRPS caps catalog requests per second across all calls; <=0 disables.
func NewClient(apiGatewayURL, token, defaultCAPath string, rateLimitRPS float64) (*Client, error) {
	base, err := parseBaseURL(apiGatewayURL)
	if err != nil {
		return nil, err
	}

	hc, err := newHTTPClient(defaultCAPath)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if rateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimitRPS), 1)
	}

	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    hc,
		limiter: limiter,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("api gateway base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api gateway base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api gateway base URL must include a host (got %q)", raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func newHTTPClient(defaultCAPath string) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(defaultCAPath) != "" {
		b, err := os.ReadFile(strings.TrimSpace(defaultCAPath))
		if err != nil {
			return nil, fmt.Errorf("read DEFAULT_CA_PATH file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(b); !ok {
			return nil, fmt.Errorf("parse DEFAULT_CA_PATH PEM: no certs found")
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	contentType string
	accept      string
	body        []byte
}

// do issues one API-gateway request and returns the response body on 2xx.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.resolve(r.path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError(r.op, resp, b)
	}
	return b, nil
}

type branchResponse struct {
	Name           string `json:"name"`
	BranchID       string `json:"branchId"`
	TransactionRID string `json:"transactionRid"`
}

// GetBranchTransactionRID returns the most recent OPEN or COMMITTED transaction on the branch.
// This value can be used to pin a readTable request to a deterministic snapshot.
func (c *Client) GetBranchTransactionRID(ctx context.Context, datasetRID, branch string) (string, error) {
	datasetRID = strings.TrimSpace(datasetRID)
	branch = strings.TrimSpace(branch)
	if datasetRID == "" {
		return "", fmt.Errorf("dataset rid is required")
	}
	if branch == "" {
		branch = "master"
	}

	b, err := c.do(ctx, request{
		op:     "getBranch",
		method: http.MethodGet,
		path: fmt.Sprintf("v2/datasets/%s/branches/%s",
			url.PathEscape(datasetRID), url.PathEscape(branch)),
		accept: "application/json",
	})
	if err != nil {
		return "", err
	}

	var out branchResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("parse get branch response: %w", err)
	}
	return strings.TrimSpace(out.TransactionRID), nil
}

// ReadTableCSV reads the dataset as CSV bytes from the readTable endpoint.
func (c *Client) ReadTableCSV(ctx context.Context, datasetRID, branch string) ([]byte, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = "master"
	}

	// Pin to the most recent transaction for deterministic reads. Some stacks
	// reject readTable without explicit transaction RIDs.
	txnRID, err := c.GetBranchTransactionRID(ctx, datasetRID, branch)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	// Dataset API v2 uses branchName; branchId is accepted by some older APIs.
	q.Set("branchName", branch)
	if strings.TrimSpace(txnRID) != "" {
		q.Set("startTransactionRid", txnRID)
		q.Set("endTransactionRid", txnRID)
	}
	q.Set("format", "CSV")

	return c.do(ctx, request{
		op:     "readTable",
		method: http.MethodGet,
		path:   fmt.Sprintf("v2/datasets/%s/readTable", url.PathEscape(datasetRID)),
		query:  q,
		accept: "text/csv",
	})
}

type createTxnRequest struct {
	TransactionType string `json:"transactionType"`
}

type createTxnResponse struct {
	// Foundry returns a Transaction object with a transaction RID.
	RID string `json:"rid"`

	// Legacy: some mocks may return transactionId.
	TransactionID string `json:"transactionId"`
}

// CreateTransaction creates a dataset transaction and returns the transaction id.
func (c *Client) CreateTransaction(ctx context.Context, datasetRID, branch string) (string, error) {
	body, err := json.Marshal(createTxnRequest{TransactionType: "SNAPSHOT"})
	if err != nil {
		return "", err
	}

	q := url.Values{}
	if strings.TrimSpace(branch) != "" {
		q.Set("branchName", branch)
	}

	b, err := c.do(ctx, request{
		op:          "createTransaction",
		method:      http.MethodPost,
		path:        fmt.Sprintf("v2/datasets/%s/transactions", url.PathEscape(datasetRID)),
		query:       q,
		contentType: "application/json",
		accept:      "application/json",
		body:        body,
	})
	if err != nil {
		return "", err
	}

	var out createTxnResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("parse create transaction response: %w", err)
	}

	txnID := strings.TrimSpace(out.TransactionID)
	if txnID == "" {
		txnID = strings.TrimSpace(out.RID)
	}
	if txnID == "" {
		return "", fmt.Errorf("create transaction response missing rid")
	}
	return txnID, nil
}

type Transaction struct {
	TransactionType string  `json:"transactionType"`
	CreatedTime     string  `json:"createdTime"`
	RID             string  `json:"rid"`
	ClosedTime      *string `json:"closedTime,omitempty"`
	Status          string  `json:"status"`
}

type listTxnsResponse struct {
	Data          []Transaction `json:"data"`
	NextPageToken string        `json:"nextPageToken"`
}

// ListTransactions lists transactions for a dataset.
//
// Note: This endpoint is documented as preview and requires `preview=true`.
func (c *Client) ListTransactions(ctx context.Context, datasetRID string, pageSize int, pageToken string) ([]Transaction, string, error) {
	q := url.Values{}
	// Required by Foundry docs for this (preview) endpoint.
	q.Set("preview", "true")
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if strings.TrimSpace(pageToken) != "" {
		q.Set("pageToken", strings.TrimSpace(pageToken))
	}

	b, err := c.do(ctx, request{
		op:     "listTransactions",
		method: http.MethodGet,
		path:   fmt.Sprintf("v2/datasets/%s/transactions", url.PathEscape(datasetRID)),
		query:  q,
		accept: "application/json",
	})
	if err != nil {
		return nil, "", err
	}

	var out listTxnsResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, "", fmt.Errorf("parse list transactions response: %w", err)
	}
	return out.Data, strings.TrimSpace(out.NextPageToken), nil
}

// FindLatestOpenTransaction returns the RID of the latest OPEN transaction for the dataset.
//
// Foundry documents that ListTransactions returns reverse chronological order, so the first OPEN is the most recent.
func (c *Client) FindLatestOpenTransaction(ctx context.Context, datasetRID string) (string, bool, error) {
	pageToken := ""
	for i := 0; i < 5; i++ {
		txns, next, err := c.ListTransactions(ctx, datasetRID, 100, pageToken)
		if err != nil {
			return "", false, err
		}
		for _, t := range txns {
			if strings.EqualFold(strings.TrimSpace(t.Status), "OPEN") && strings.TrimSpace(t.RID) != "" {
				return strings.TrimSpace(t.RID), true, nil
			}
		}
		if next == "" {
			break
		}
		pageToken = next
	}
	return "", false, nil
}

// UploadFile uploads file bytes to a transaction path.
func (c *Client) UploadFile(ctx context.Context, datasetRID, txnID, filePath string, contentType string, b []byte) error {
	q := url.Values{}
	if strings.TrimSpace(txnID) != "" {
		q.Set("transactionRid", strings.TrimSpace(txnID))
	}

	_, err := c.do(ctx, request{
		op:     "uploadFile",
		method: http.MethodPost,
		path: fmt.Sprintf("v2/datasets/%s/files/%s/upload",
			url.PathEscape(datasetRID), escapeURLPath(filePath)),
		query:       q,
		contentType: contentType,
		body:        b,
	})
	return err
}

// CommitTransaction commits a transaction.
func (c *Client) CommitTransaction(ctx context.Context, datasetRID, txnID string) error {
	_, err := c.do(ctx, request{
		op:     "commitTransaction",
		method: http.MethodPost,
		path: fmt.Sprintf("v2/datasets/%s/transactions/%s/commit",
			url.PathEscape(datasetRID), url.PathEscape(txnID)),
		accept: "application/json",
	})
	return err
}

func (c *Client) resolve(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	rel := &url.URL{Path: relPath}
	return c.baseURL.ResolveReference(rel)
}

func escapeURLPath(p string) string {
	// Preserve "/" separators while escaping each segment.
	cleaned := path.Clean("/" + p)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "." {
		return ""
	}
	parts := strings.Split(cleaned, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
