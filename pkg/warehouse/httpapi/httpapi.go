// Package httpapi implements a warehouse backend that forwards queries to an
// HTTP query service. Each query is a POST of {"sql": ..., "database": ...};
// the service answers with a JSON array of row objects. Column order follows
// the key order of the first row that mentions each column.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/warehouse"
)

// Config holds the query service settings.
type Config struct {
	// URL is the query endpoint.
	URL string

	// Timeout bounds one query round trip (default: 60s).
	Timeout time.Duration

	// Headers are added to every request (e.g. an Authorization header).
	Headers map[string]string
}

// Backend is the HTTP query API backend.
type Backend struct {
	url     string
	headers map[string]string
	client  *http.Client
}

var _ warehouse.Backend = (*Backend)(nil)

// New creates a backend for the configured endpoint.
func New(cfg Config) (*Backend, error) {
	if cfg.URL == "" {
		return nil, errors.New("query API url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Backend{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns "http".
func (b *Backend) Name() string { return "http" }

type queryRequest struct {
	SQL      string `json:"sql"`
	Database string `json:"database"`
}

// Query posts the statement and decodes the returned rows. An empty result
// list yields an empty table.
func (b *Backend) Query(ctx context.Context, target, sql string) (*frame.Table, error) {
	body, err := json.Marshal(queryRequest{SQL: sql, Database: target})
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &warehouse.QueryError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &warehouse.QueryError{
			Target: target,
			Status: resp.StatusCode,
			Err:    errors.New(upstreamMessage(msg)),
		}
	}

	records, err := DecodeRecords(resp.Body)
	if err != nil {
		return nil, &warehouse.QueryError{Target: target, Err: fmt.Errorf("decoding rows: %w", err)}
	}
	return frame.FromRecords(records), nil
}

// HealthCheck is a no-op; the query service has no agreed health endpoint.
func (b *Backend) HealthCheck(_ context.Context) error { return nil }

// Close releases idle connections.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// DecodeRecords reads a JSON array of objects, keeping each object's key
// order. A JSON null decodes as no rows.
func DecodeRecords(r io.Reader) ([]frame.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected an array of rows, got %v", tok)
	}

	var records []frame.Record
	for dec.More() {
		rec, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeObject(dec *json.Decoder) (frame.Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return frame.Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return frame.Record{}, fmt.Errorf("expected a row object, got %v", tok)
	}
	var rec frame.Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return frame.Record{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return frame.Record{}, fmt.Errorf("expected a column name, got %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return frame.Record{}, err
		}
		rec.Keys = append(rec.Keys, key)
		rec.Values = append(rec.Values, cell(v))
	}
	if _, err := dec.Token(); err != nil {
		return frame.Record{}, err
	}
	return rec, nil
}

// cell converts json.Number to int64 or float64. Nested values are kept as
// decoded.
func cell(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// upstreamMessage extracts "detail" or "error" from a JSON error body and
// falls back to the trimmed text.
func upstreamMessage(body []byte) string {
	var env struct {
		Detail any `json:"detail"`
		Error  any `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Detail != nil {
			return fmt.Sprint(env.Detail)
		}
		if env.Error != nil {
			return fmt.Sprint(env.Error)
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return msg
}
