package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastOpts keeps retry tests quick: no throttling, millisecond backoff.
func fastOpts(baseURL string) []Option {
	return []Option{WithBaseURL(baseURL), WithRateLimit(0), WithRetryBackoff(5 * time.Millisecond)}
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	c := NewClient("pat-test", "appBASE")
	hc := c.(*httpClient)
	assert.Equal(t, "pat-test", hc.apiKey)
	assert.Equal(t, "appBASE", hc.baseID)
	assert.Equal(t, "https://api.airtable.com", hc.baseURL)
	assert.Equal(t, 3, hc.maxAttempts)
	assert.Equal(t, 1*time.Second, hc.backoff)
	assert.NotNil(t, hc.limiter)
	assert.NotNil(t, hc.http)
	assert.Equal(t, 30*time.Second, hc.http.Timeout)
}

func TestNewClient_Options(t *testing.T) {
	t.Parallel()
	custom := &http.Client{}
	c := NewClient("pat-test", "appBASE",
		WithBaseURL("https://fake.local"),
		WithHTTPClient(custom),
		WithMaxAttempts(5),
		WithRetryBackoff(10*time.Millisecond),
		WithRateLimit(0),
	)
	hc := c.(*httpClient)
	assert.Equal(t, "https://fake.local", hc.baseURL)
	assert.Equal(t, custom, hc.http)
	assert.Equal(t, 5, hc.maxAttempts)
	assert.Equal(t, 10*time.Millisecond, hc.backoff)
	assert.Nil(t, hc.limiter)
}

func TestCreateRecords_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/appBASE/Orders", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req createRecordsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Typecast)
		require.Len(t, req.Records, 1)
		assert.Equal(t, "113-0000000-0000001", req.Records[0].Fields["Order ID"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recordsResponse{Records: []Record{
			{ID: "recORD1", Fields: req.Records[0].Fields},
		}})
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	created, err := c.CreateRecords(context.Background(), "Orders", []Record{
		{Fields: map[string]any{"Order ID": "113-0000000-0000001"}},
	})

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "recORD1", created[0].ID)
}

func TestCreateRecords_TableNameWithSpaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/appBASE/Order Line Items", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recordsResponse{Records: []Record{{ID: "recLINE1"}}})
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	_, err := c.CreateRecords(context.Background(), "Order Line Items", []Record{
		{Fields: map[string]any{"Buyer Name": "John Smith"}},
	})

	require.NoError(t, err)
}

func TestCreateRecords_Empty(t *testing.T) {
	t.Parallel()

	c := NewClient("pat-test", "appBASE", WithBaseURL("http://unreachable.invalid"), WithRateLimit(0))
	created, err := c.CreateRecords(context.Background(), "Orders", nil)

	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestCreateRecords_TooManyRecords(t *testing.T) {
	t.Parallel()

	records := make([]Record, 11)
	for i := range records {
		records[i] = Record{Fields: map[string]any{"Quantity": 1}}
	}

	c := NewClient("pat-test", "appBASE", WithBaseURL("http://unreachable.invalid"), WithRateLimit(0))
	_, err := c.CreateRecords(context.Background(), "Order Line Items", records)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 10 records")
}

func TestCreateRecords_APIError(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"INVALID_VALUE_FOR_COLUMN"}}`))
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	_, err := c.CreateRecords(context.Background(), "Orders", []Record{{Fields: map[string]any{}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	// 422 is a caller mistake, not a transient fault.
	assert.Equal(t, int32(1), attempts.Load())
}

func TestCreateRecords_RetryOn429(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recordsResponse{Records: []Record{{ID: "recOK"}}})
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	created, err := c.CreateRecords(context.Background(), "Orders", []Record{{Fields: map[string]any{}}})

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "recOK", created[0].ID)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCreateRecords_RetryExhausted(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`service unavailable`))
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	_, err := c.CreateRecords(context.Background(), "Orders", []Record{{Fields: map[string]any{}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCreateRecords_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("pat-test", "appBASE", WithBaseURL(srv.URL))
	_, err := c.CreateRecords(ctx, "Orders", []Record{{Fields: map[string]any{}}})

	require.Error(t, err)
}

func TestListTables_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v0/meta/bases/appBASE/tables", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tablesResponse{Tables: []Table{
			{ID: "tblORD", Name: "Orders"},
			{ID: "tblLINE", Name: "Order Line Items"},
		}})
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	tables, err := c.ListTables(context.Background())

	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "tblORD", tables[0].ID)
	assert.Equal(t, "Order Line Items", tables[1].Name)
}

func TestCreateTable_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/meta/bases/appBASE/tables", r.URL.Path)

		var spec TableSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, "Orders", spec.Name)
		assert.Len(t, spec.Fields, 6)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Table{ID: "tblNEW", Name: spec.Name})
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	table, err := c.CreateTable(context.Background(), OrdersTableSpec("Orders"))

	require.NoError(t, err)
	assert.Equal(t, "tblNEW", table.ID)
}

func TestCreateTable_Forbidden(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"type":"INVALID_PERMISSIONS"}}`))
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	_, err := c.CreateTable(context.Background(), OrdersTableSpec("Orders"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCreateRecords_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient("pat-test", "appBASE", fastOpts(srv.URL)...)
	_, err := c.CreateRecords(context.Background(), "Orders", []Record{{Fields: map[string]any{}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestRetryableStatusCode(t *testing.T) {
	assert.True(t, retryableStatusCode(429))
	assert.True(t, retryableStatusCode(500))
	assert.True(t, retryableStatusCode(502))
	assert.True(t, retryableStatusCode(503))
	assert.False(t, retryableStatusCode(200))
	assert.False(t, retryableStatusCode(403))
	assert.False(t, retryableStatusCode(404))
	assert.False(t, retryableStatusCode(422))
}
