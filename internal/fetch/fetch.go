// Package fetch downloads candidate pages as text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hession/coco/internal/config"
)

const defaultMaxBytes = int64(2 << 20)

// ErrFetch wraps every failure to obtain a page's text.
var ErrFetch = errors.New("page fetch failed")

// Fetcher returns the text behind a URL within timeout.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string, timeout time.Duration) (string, error)
}

// Client fetches pages over HTTP.
type Client struct {
	userAgent string
	maxBytes  int64
	stripHTML bool
	client    *http.Client
}

// NewClient creates a fetch client from config.
func NewClient(cfg config.FetchConfig) *Client {
	userAgent := "Coco/0.1"
	if strings.TrimSpace(cfg.UserAgent) != "" {
		userAgent = cfg.UserAgent
	}
	maxBytes := defaultMaxBytes
	if cfg.MaxBytes > 0 {
		maxBytes = cfg.MaxBytes
	}
	return &Client{
		userAgent: userAgent,
		maxBytes:  maxBytes,
		stripHTML: cfg.StripHTML,
		client:    &http.Client{},
	}
}

// FetchText GETs rawURL and returns its body. Non-2xx statuses are errors.
// Every error wraps ErrFetch.
func (c *Client) FetchText(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("%w: invalid url: %s", ErrFetch, rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported url scheme: %s", ErrFetch, parsed.Scheme)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s returned status %d", ErrFetch, parsed.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrFetch, err)
	}

	content := string(body)
	if c.stripHTML && strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		content = StripHTMLTags(content)
	}
	return content, nil
}

var (
	scriptTag = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	allTags   = regexp.MustCompile(`(?s)<[^>]+>`)
)

// StripHTMLTags reduces an HTML document to its visible text.
func StripHTMLTags(input string) string {
	trimmed := scriptTag.ReplaceAllString(input, " ")
	trimmed = styleTag.ReplaceAllString(trimmed, " ")
	trimmed = allTags.ReplaceAllString(trimmed, " ")
	trimmed = html.UnescapeString(trimmed)
	return strings.Join(strings.Fields(trimmed), " ")
}
