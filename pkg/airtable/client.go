// Package airtable talks to the Airtable base this tool manages: table
// setup through the Meta API and record creation for parsed orders.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// maxBatchSize is the Airtable API cap on records per create request.
const maxBatchSize = 10

// Client defines the Airtable operations used by this application.
type Client interface {
	// CreateRecords inserts up to ten records into a table in one request
	// and returns the created records with their assigned IDs.
	CreateRecords(ctx context.Context, table string, records []Record) ([]Record, error)
	// ListTables returns the tables currently defined in the base.
	ListTables(ctx context.Context) ([]Table, error)
	// CreateTable creates a table in the base via the Meta API.
	CreateTable(ctx context.Context, spec TableSpec) (*Table, error)
}

// Record is one Airtable record on the wire.
type Record struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// Table describes a table as reported by the Meta API.
type Table struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields,omitempty"`
}

// TableSpec is the Meta API payload for creating a table.
type TableSpec struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// FieldSpec describes one field in a table.
type FieldSpec struct {
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Options *FieldOptions `json:"options,omitempty"`
}

// FieldOptions carries the type-specific settings a field needs.
type FieldOptions struct {
	Choices       []Choice `json:"choices,omitempty"`
	LinkedTableID string   `json:"linkedTableId,omitempty"`
	// Precision is a pointer so an explicit zero still serializes.
	Precision *int `json:"precision,omitempty"`
}

// Choice is one option of a single-select field.
type Choice struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// APIError is a non-success response from the Airtable API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable: status %d: %s", e.StatusCode, e.Body)
}

// Option configures the Airtable client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (5 req/s, the Airtable
// per-base limit). A rate of zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithMaxAttempts sets the total attempts per request, retries included.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the initial retry delay. Each retry doubles it.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.backoff = d
		}
	}
}

type httpClient struct {
	apiKey      string
	baseID      string
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates an Airtable client for one base. The token and base ID
// come from configuration, never from source.
func NewClient(apiKey, baseID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseID:  baseID,
		baseURL: "https://api.airtable.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(5, 1),
		maxAttempts: 3,
		backoff:     1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// doJSON sends one JSON request with exponential backoff retries on transient
// failures (429, 500, 502, 503). A fresh request is built per attempt so the
// body can be resent. The final non-success response surfaces as *APIError.
func (c *httpClient) doJSON(ctx context.Context, method, reqURL string, payload, out any) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return eris.Wrap(err, "airtable: marshal request")
		}
		body = b
	}

	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.wait(ctx); err != nil {
			return eris.Wrap(err, "airtable: rate limit")
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return eris.Wrap(err, "airtable: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return eris.Wrap(lastErr, "airtable: request failed")
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return eris.Wrap(readErr, "airtable: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < c.maxAttempts {
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return eris.Wrap(&APIError{StatusCode: resp.StatusCode, Body: string(respBody)}, "airtable: api error")
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return eris.Wrap(err, "airtable: unmarshal response")
			}
		}
		return nil
	}

	return eris.Wrap(lastErr, "airtable: request failed")
}

type createRecordsRequest struct {
	Records []Record `json:"records"`
	// Typecast lets the API coerce select values into existing choices.
	Typecast bool `json:"typecast"`
}

type recordsResponse struct {
	Records []Record `json:"records"`
}

type tablesResponse struct {
	Tables []Table `json:"tables"`
}

func (c *httpClient) CreateRecords(ctx context.Context, table string, records []Record) ([]Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > maxBatchSize {
		return nil, eris.Errorf("airtable: at most %d records per create, got %d", maxBatchSize, len(records))
	}

	reqURL := fmt.Sprintf("%s/v0/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
	var resp recordsResponse
	err := c.doJSON(ctx, http.MethodPost, reqURL, createRecordsRequest{Records: records, Typecast: true}, &resp)
	if err != nil {
		return nil, eris.Wrapf(err, "airtable: create records in %s", table)
	}
	return resp.Records, nil
}

func (c *httpClient) ListTables(ctx context.Context) ([]Table, error) {
	reqURL := fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.baseURL, c.baseID)
	var resp tablesResponse
	if err := c.doJSON(ctx, http.MethodGet, reqURL, nil, &resp); err != nil {
		return nil, eris.Wrap(err, "airtable: list tables")
	}
	return resp.Tables, nil
}

func (c *httpClient) CreateTable(ctx context.Context, spec TableSpec) (*Table, error) {
	reqURL := fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.baseURL, c.baseID)
	var table Table
	if err := c.doJSON(ctx, http.MethodPost, reqURL, spec, &table); err != nil {
		return nil, eris.Wrapf(err, "airtable: create table %s", spec.Name)
	}
	return &table, nil
}
