package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoRows is returned by Single when the filter matches no row.
var ErrNoRows = errors.New("store: no rows in result set")

type Config struct {
	// BaseURL is the REST root of the hosted table store,
	// e.g. https://<project>.supabase.co/rest/v1
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`

	Timeout time.Duration `json:"timeout"`
}

// Client is a thin query client for the hosted record store. It speaks
// the store's REST dialect: column selection and equality filters as
// query parameters, rows as JSON arrays.
type Client struct {
	baseURL string
	apiKey  string

	// hc is the http client.
	hc *http.Client
}

func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// Query is a pending select against one table. Filters accumulate until
// Single or List executes the request.
type Query struct {
	c       *Client
	table   string
	columns string
	filters url.Values
}

// Select starts a query against table, fetching the given columns
// (all columns when none are given).
func (c *Client) Select(table string, columns ...string) *Query {
	cols := "*"
	if len(columns) > 0 {
		cols = ""
		for i, col := range columns {
			if i > 0 {
				cols += ","
			}
			cols += col
		}
	}

	return &Query{
		c:       c,
		table:   table,
		columns: cols,
		filters: url.Values{},
	}
}

// Eq adds an equality filter on column.
func (q *Query) Eq(column, value string) *Query {
	q.filters.Set(column, "eq."+value)
	return q
}

// Single executes the query expecting exactly one row and decodes it
// into dst. Returns ErrNoRows when the filter matches nothing.
func (q *Query) Single(ctx context.Context, dst any) error {
	rows := json.RawMessage{}
	if err := q.List(ctx, &rows); err != nil {
		return err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rows, &items); err != nil {
		return fmt.Errorf("store.Single: json.Unmarshal: %w", err)
	}
	if len(items) == 0 {
		return ErrNoRows
	}

	if err := json.Unmarshal(items[0], dst); err != nil {
		return fmt.Errorf("store.Single: json.Unmarshal row: %w", err)
	}
	return nil
}

// List executes the query and decodes the row array into dst.
func (q *Query) List(ctx context.Context, dst any) error {
	params := url.Values{"select": []string{q.columns}}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	endpoint := fmt.Sprintf("%s/%s?%s", q.c.baseURL, q.table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("store.List: http.NewRequestWithContext: %w", err)
	}
	q.c.setHeaders(req)

	resp, err := q.c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("store.List: hc.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("store.List: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("store.List: json.Decode: %w", err)
	}
	return nil
}

// Insert writes one row into table.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store.Insert: json.Marshal: %w", err)
	}
	body := bytes.NewBuffer(b)

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("store.Insert: http.NewRequestWithContext: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("store.Insert: hc.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("store.Insert: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
