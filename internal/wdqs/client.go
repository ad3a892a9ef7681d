// Package wdqs talks to the Wikidata Query Service SPARQL endpoint.
package wdqs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultEndpoint  = "https://query.wikidata.org/sparql"
	DefaultDelay     = time.Second
	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 16 << 20
)

// Client sends SPARQL queries one at a time and pauses after every call so
// the endpoint's rate limit is respected. Concurrent callers are serialized:
// a call waits for the previous request and its pause to finish.
type Client struct {
	mu sync.Mutex

	endpoint   string
	userAgent  string
	delay      time.Duration
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration)
}

// New creates a Client for endpoint. delay is the pause after each call.
func New(endpoint, userAgent string, delay time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if delay < 0 {
		delay = 0
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		userAgent:  userAgent,
		delay:      delay,
		httpClient: &http.Client{Timeout: defaultTimeout},
		sleep:      sleepCtx,
	}
}

// Ask runs an ASK query and returns its boolean answer.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	body, err := c.do(ctx, query)
	if err != nil {
		return false, err
	}
	res := gjson.GetBytes(body, "boolean")
	if !res.Exists() {
		return false, fmt.Errorf("ask: no boolean in response")
	}
	return res.Bool(), nil
}

// Binding is one result row of a SELECT query, mapping variable names to
// their values.
type Binding map[string]string

// Select runs a SELECT query and returns the result rows in response order.
func (c *Client) Select(ctx context.Context, query string) ([]Binding, error) {
	body, err := c.do(ctx, query)
	if err != nil {
		return nil, err
	}

	var rows []Binding
	gjson.GetBytes(body, "results.bindings").ForEach(func(_, row gjson.Result) bool {
		b := make(Binding)
		row.ForEach(func(name, v gjson.Result) bool {
			b[name.String()] = v.Get("value").String()
			return true
		})
		rows = append(rows, b)
		return true
	})
	return rows, nil
}

// do posts the query and returns the raw JSON payload. The politeness delay
// is applied after every attempt, successful or not.
func (c *Client) do(ctx context.Context, query string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.sleep(ctx, c.delay)

	form := url.Values{}
	form.Set("query", query)
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating sparql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sparql: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading sparql response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("sparql: cannot decode payload")
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
