package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// PageSize is the number of items requested per search call.
const PageSize = 10

// ErrUpstreamCall wraps every failed search API call.
var ErrUpstreamCall = errors.New("search call failed")

// Result is a single search result entry. Downstream stages share the
// pointer produced by the provider and never modify it.
type Result struct {
	Title       string         `json:"title"`
	Link        string         `json:"link"`
	DisplayHost string         `json:"display_host"`
	Snippet     string         `json:"snippet,omitempty"`
	Source      string         `json:"source"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Page is one page of results for a 1-based start cursor.
type Page struct {
	Query    string    `json:"query"`
	Provider string    `json:"provider"`
	Start    int       `json:"start"`
	Results  []*Result `json:"results"`
}

// Provider performs web searches.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, start int) (Page, error)
}

// hostOf returns the host of rawURL, or "" when it does not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Host
}

// getJSON performs a GET and decodes a 2xx JSON body into out. Non-2xx
// responses are returned as errors carrying up to 512 bytes of the body.
func getJSON(ctx context.Context, client *http.Client, userAgent, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
