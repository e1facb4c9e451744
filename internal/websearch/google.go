package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	baseURL   string
	apiKey    string
	engineID  string
	userAgent string
	client    *http.Client
}

func NewGoogleProvider(baseURL, apiKey, engineID, userAgent string, timeout time.Duration) *GoogleProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "Coco/0.1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(apiKey),
		engineID:  strings.TrimSpace(engineID),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type googleItem struct {
	Title       string         `json:"title"`
	Link        string         `json:"link"`
	DisplayLink string         `json:"displayLink"`
	Snippet     string         `json:"snippet"`
	PageMap     map[string]any `json:"pagemap"`
}

type googleResponse struct {
	Items []googleItem `json:"items"`
}

func (p *GoogleProvider) Search(ctx context.Context, query string, start int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, fmt.Errorf("query cannot be empty")
	}
	if start < 1 {
		start = 1
	}

	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid base url: %w", err)
	}
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(PageSize))
	params.Set("start", strconv.Itoa(start))
	endpoint.RawQuery = params.Encode()

	var payload googleResponse
	if err := getJSON(ctx, p.client, p.userAgent, endpoint.String(), &payload); err != nil {
		return Page{}, err
	}

	// A query past the last page comes back without "items".
	results := make([]*Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		host := strings.TrimSpace(item.DisplayLink)
		if host == "" {
			host = hostOf(item.Link)
		}
		results = append(results, &Result{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			DisplayHost: host,
			Snippet:     strings.TrimSpace(item.Snippet),
			Source:      p.Name(),
			Payload:     item.PageMap,
		})
	}

	return Page{
		Query:    query,
		Provider: p.Name(),
		Start:    start,
		Results:  results,
	}, nil
}
