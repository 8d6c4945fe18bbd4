// Package search mirrors store documents into the external full-text index.
// One logical index per entity kind; the mirrored body is the full
// denormalized document, sent verbatim.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storefront-labs/storefront-backend/internal/config"
)

const (
	IndexUsers    = "users"
	IndexProducts = "products"
	IndexOrders   = "orders"
)

type Client struct {
	appID   string
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(cfg *config.Config) *Client {
	baseURL := cfg.SearchAPIURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.algolia.net", cfg.SearchAppID)
	}
	return &Client{
		appID:   cfg.SearchAppID,
		apiKey:  cfg.SearchAPIKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Upsert saves the raw document body under objectID. body must already be
// JSON-encoded.
func (c *Client) Upsert(ctx context.Context, index, objectID string, body []byte) error {
	return c.do(ctx, http.MethodPut, c.objectURL(index, objectID), body)
}

func (c *Client) Delete(ctx context.Context, index, objectID string) error {
	return c.do(ctx, http.MethodDelete, c.objectURL(index, objectID), nil)
}

func (c *Client) objectURL(index, objectID string) string {
	return fmt.Sprintf("%s/1/indexes/%s/%s", c.baseURL, index, objectID)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("X-Algolia-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("search index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search index returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
