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

type SearXNGProvider struct {
	baseURL   string
	userAgent string
	apiKey    string
	language  string
	client    *http.Client
}

func NewSearXNGProvider(baseURL, userAgent, apiKey string, timeout time.Duration) *SearXNGProvider {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "Coco/0.1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearXNGProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		apiKey:    strings.TrimSpace(apiKey),
		language:  "es",
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *SearXNGProvider) Name() string {
	return "searxng"
}

type searxngResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}

type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

// pageNumber converts a 1-based item cursor into SearXNG's 1-based page number.
func pageNumber(start int) int {
	if start < 1 {
		return 1
	}
	return (start-1)/PageSize + 1
}

func (p *SearXNGProvider) Search(ctx context.Context, query string, start int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, fmt.Errorf("query cannot be empty")
	}

	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid base url: %w", err)
	}
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/search"

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", "general")
	params.Set("language", p.language)
	params.Set("safesearch", "1")
	params.Set("pageno", strconv.Itoa(pageNumber(start)))
	if p.apiKey != "" {
		params.Set("apikey", p.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	var payload searxngResponse
	if err := getJSON(ctx, p.client, p.userAgent, endpoint.String(), &payload); err != nil {
		return Page{}, err
	}

	results := make([]*Result, 0, PageSize)
	for _, res := range payload.Results {
		if len(results) >= PageSize {
			break
		}
		link := strings.TrimSpace(res.URL)
		results = append(results, &Result{
			Title:       strings.TrimSpace(res.Title),
			Link:        link,
			DisplayHost: hostOf(link),
			Snippet:     strings.TrimSpace(res.Content),
			Source:      p.Name(),
			Payload: map[string]any{
				"engine": res.Engine,
				"score":  res.Score,
			},
		})
	}

	return Page{
		Query:    query,
		Provider: p.Name(),
		Start:    start,
		Results:  results,
	}, nil
}
