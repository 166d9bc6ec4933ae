// Package catalog talks to the published STAC API and reconciles the
// configured collections against it: per collection the run either skips,
// creates, or replaces, and every created collection is recorded in the run
// context for the index synchronizer.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"stacbuild/internal/httpx"
	"stacbuild/internal/stac"
)

// Client is the remote-catalog collaborator: one GET for the published
// catalog document, and one GET per collection id as an existence oracle.
type Client struct {
	base string
	http *httpx.Client
}

// NewClient builds a Client for the API base URL.
func NewClient(base string, hc *httpx.Client) *Client {
	if hc == nil {
		hc = httpx.NewClient(httpx.Config{})
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

// Fetch retrieves the published catalog. Absence is a first-class outcome:
// a non-200 response or a transport failure returns (nil, false, nil) so
// the caller starts a fresh catalog instead of aborting.
func (c *Client) Fetch(ctx context.Context) (*stac.Catalog, bool, error) {
	resp, err := c.http.Get(ctx, c.base)
	if err != nil {
		log.Printf("catalog: fetch %s failed, starting fresh: %v", c.base, err)
		return nil, false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("catalog: fetch %s returned %d, starting fresh", c.base, resp.StatusCode)
		return nil, false, nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: read body: %w", err)
	}
	var cat stac.Catalog
	if err := json.Unmarshal(b, &cat); err != nil {
		return nil, false, fmt.Errorf("catalog: decode catalog document: %w", err)
	}
	return &cat, true, nil
}

// Exists probes the remote API for the collection id. A non-200 response
// means "does not exist"; a transport-level failure is returned to the
// caller, which applies the configured probe policy.
func (c *Client) Exists(ctx context.Context, collID string) (bool, error) {
	resp, err := c.http.Get(ctx, c.base+"/collections/"+collID)
	if err != nil {
		return false, fmt.Errorf("catalog: probe %s: %w", collID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}
