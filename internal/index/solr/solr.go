// Package solr implements index.Index against the Solr JSON update API,
// over the shared retrying HTTP client. Each operation is one POST to the
// core's /update handler.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"stacbuild/internal/httpx"
	"stacbuild/internal/index"
)

// Client is a Solr-backed index.Index.
type Client struct {
	base string // core base URL, e.g. http://solr:8983/solr/catalog
	http *httpx.Client
}

// New builds a Client for the Solr core base URL.
func New(base string, hc *httpx.Client) *Client {
	if hc == nil {
		hc = httpx.NewClient(httpx.Config{})
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

var jsonHeader = http.Header{"Content-Type": []string{"application/json"}}

// update POSTs one update command body to the core.
func (c *Client) update(ctx context.Context, params string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("solr: marshal update: %w", err)
	}
	url := c.base + "/update" + params
	resp, err := c.http.Post(ctx, url, b, jsonHeader)
	if err != nil {
		return fmt.Errorf("solr: post update: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("solr: update returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Add stages one document.
func (c *Client) Add(ctx context.Context, doc index.Document) error {
	return c.update(ctx, "", map[string]any{"add": map[string]any{"doc": doc}})
}

// DeleteByID stages deletion of one document.
func (c *Client) DeleteByID(ctx context.Context, id string) error {
	return c.update(ctx, "", map[string]any{"delete": map[string]any{"id": id}})
}

// DeleteByQuery stages deletion of every matching document.
func (c *Client) DeleteByQuery(ctx context.Context, q string) error {
	return c.update(ctx, "", map[string]any{"delete": map[string]any{"query": q}})
}

// Commit makes staged changes visible.
func (c *Client) Commit(ctx context.Context) error {
	return c.update(ctx, "?commit=true", map[string]any{})
}

// Optimize compacts the index.
func (c *Client) Optimize(ctx context.Context) error {
	return c.update(ctx, "?optimize=true", map[string]any{})
}
