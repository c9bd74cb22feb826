package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when no record exists at the requested
// sequence number.
var ErrNotFound = errors.New("amendment not found")

// Amendment is the payload of one ledger record.
type Amendment struct {
	ActID      string `json:"act_id"`
	ActTitle   string `json:"act_title,omitempty"`
	Content    string `json:"content"`
	ChangeType string `json:"change_type"`
	Author     string `json:"author"`
	Summary    string `json:"summary,omitempty"`
}

// SubmitResult holds the ledger coordinates of a newly appended amendment.
type SubmitResult struct {
	Seq       uint64    `json:"seq"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry is one decoded ledger record as returned by List and Get.
type Entry struct {
	Seq       uint64     `json:"seq"`
	Timestamp time.Time  `json:"timestamp"`
	Hash      string     `json:"hash"`
	PrevHash  string     `json:"prev_hash"`
	Amendment *Amendment `json:"amendment"`
}

// VerifyResult reports the outcome of a chain verification run.
// FirstBadSeq and Defect are populated only when Valid is false.
type VerifyResult struct {
	Valid       bool   `json:"valid"`
	Checked     int    `json:"checked"`
	FirstBadSeq int64  `json:"first_bad_seq"`
	Defect      string `json:"defect"`
}

// Statistics summarizes the chain as reported by GET /ledger/statistics.
type Statistics struct {
	Count           int        `json:"count"`
	LastVerifiedSeq int64      `json:"last_verified_seq"`
	FirstTimestamp  *time.Time `json:"first_timestamp,omitempty"`
	LastTimestamp   *time.Time `json:"last_timestamp,omitempty"`
	Span            string     `json:"span,omitempty"`
}

// Overview is the chain head summary from GET /ledger.
type Overview struct {
	Count    int     `json:"count"`
	HeadSeq  *uint64 `json:"head_seq,omitempty"`
	HeadHash string  `json:"head_hash,omitempty"`
}

// IngestReport summarizes one XML ingestion run.
type IngestReport struct {
	RunID    string   `json:"run_id"`
	ActID    string   `json:"act_id"`
	Parsed   int      `json:"parsed"`
	Appended int      `json:"appended"`
	Errors   []string `json:"errors,omitempty"`
}

// Client is the LexLedger SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// token state — guarded by mu
	mu          sync.Mutex
	adminSecret string
	bearerToken string
	tokenExpiry time.Time // zero = token was set manually (no auto-refresh)
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAdminSecret enables automatic token exchange: before each mutating
// call the client ensures it holds an unexpired bearer token, fetching a
// fresh one from POST /auth/token when needed.
func WithAdminSecret(secret string) Option {
	return func(c *Client) { c.adminSecret = secret }
}

// WithToken attaches a pre-obtained bearer token to every mutating request.
// The token is treated as long-lived and will not be auto-refreshed.
func WithToken(token string) Option {
	return func(c *Client) {
		c.bearerToken = token
		c.tokenExpiry = time.Time{}
	}
}

// New creates a Client talking to the LexLedger API at baseURL,
// e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchToken exchanges the configured admin secret for a bearer token,
// caches it, and returns it.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchTokenLocked(ctx)
}

func (c *Client) fetchTokenLocked(ctx context.Context) (string, error) {
	if c.adminSecret == "" {
		return "", errors.New("no admin secret configured")
	}

	body, _ := json.Marshal(map[string]string{"secret": c.adminSecret})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint error %d: %s", resp.StatusCode, string(raw))
	}

	var payload struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.bearerToken = payload.Token
	// Refresh 60 s before actual expiry to avoid clock-skew failures.
	c.tokenExpiry = payload.ExpiresAt.Add(-60 * time.Second)
	return payload.Token, nil
}

// ensureToken returns a valid bearer token, fetching a new one if the cached
// token is absent or approaching expiry. Thread-safe.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// tokenExpiry.IsZero() means the token was set manually via WithToken
	// and should never be auto-refreshed.
	if c.bearerToken != "" && (c.tokenExpiry.IsZero() || time.Now().Before(c.tokenExpiry)) {
		return c.bearerToken, nil
	}
	return c.fetchTokenLocked(ctx)
}

// Submit appends one amendment to the ledger. A nil timestamp lets the
// server assign the time.
func (c *Client) Submit(ctx context.Context, a Amendment, ts *time.Time) (*SubmitResult, error) {
	req := struct {
		Amendment
		Timestamp *time.Time `json:"timestamp,omitempty"`
	}{Amendment: a, Timestamp: ts}

	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/amendments", &req, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns one page of the amendment history plus the total record count.
func (c *Client) List(ctx context.Context, offset, limit int) ([]Entry, int, error) {
	path := fmt.Sprintf("/api/v1/amendments?offset=%d&limit=%d", offset, limit)
	var page struct {
		Amendments []Entry `json:"amendments"`
		Total      int     `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &page, false); err != nil {
		return nil, 0, err
	}
	return page.Amendments, page.Total, nil
}

// Get returns the decoded record at the given sequence number, or ErrNotFound.
func (c *Client) Get(ctx context.Context, seq uint64) (*Entry, error) {
	var entry Entry
	err := c.do(ctx, http.MethodGet, "/api/v1/amendments/"+strconv.FormatUint(seq, 10), nil, &entry, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Verify asks the server to walk the chain and report integrity. With
// incremental set, only records appended since the last fully successful
// verification are re-validated.
func (c *Client) Verify(ctx context.Context, incremental bool) (*VerifyResult, error) {
	path := "/api/v1/ledger/verify"
	if incremental {
		path += "?incremental=true"
	}
	res := VerifyResult{FirstBadSeq: -1}
	if err := c.do(ctx, http.MethodGet, path, nil, &res, false); err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats returns chain statistics.
func (c *Client) Stats(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/statistics", nil, &stats, false); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Ledger returns the chain head overview.
func (c *Client) Ledger(ctx context.Context) (*Overview, error) {
	var ov Overview
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger", nil, &ov, false); err != nil {
		return nil, err
	}
	return &ov, nil
}

// Reset discards the entire chain. Administrative; irreversible.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/ledger/reset", nil, nil, true)
}

// IngestXML streams one legal act XML document to the server for ingestion
// and returns the per-run report.
func (c *Client) IngestXML(ctx context.Context, doc io.Reader) (*IngestReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/ingest", doc)
	if err != nil {
		return nil, fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ingest response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, raw)
	}

	var report IngestReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode ingest report: %w", err)
	}
	return &report, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := string(body)
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}

// do performs one JSON round-trip. reqBody and respBody may be nil; admin
// attaches a bearer token.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any, admin bool) error {
	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, raw)
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
