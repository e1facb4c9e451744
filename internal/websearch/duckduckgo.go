package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DuckDuckGoProvider uses the Instant Answer API. It has no pagination, so
// only the first page carries results.
type DuckDuckGoProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewDuckDuckGoProvider(baseURL, userAgent string, timeout time.Duration) *DuckDuckGoProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "Coco/0.1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGoProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

type ddgResult struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string      `json:"Heading"`
	AbstractText  string      `json:"AbstractText"`
	AbstractURL   string      `json:"AbstractURL"`
	Results       []ddgResult `json:"Results"`
	RelatedTopics []ddgTopic  `json:"RelatedTopics"`
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, start int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, fmt.Errorf("query cannot be empty")
	}
	page := Page{Query: query, Provider: p.Name(), Start: start}
	if start > 1 {
		return page, nil
	}

	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid base url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	endpoint.RawQuery = params.Encode()

	var payload ddgResponse
	if err := getJSON(ctx, p.client, p.userAgent, endpoint.String(), &payload); err != nil {
		return Page{}, err
	}

	results := make([]*Result, 0, PageSize)
	seen := make(map[string]bool)
	addResult := func(title, link, snippet string) {
		if len(results) >= PageSize {
			return
		}
		link = strings.TrimSpace(link)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		results = append(results, &Result{
			Title:       strings.TrimSpace(title),
			Link:        link,
			DisplayHost: hostOf(link),
			Snippet:     strings.TrimSpace(snippet),
			Source:      p.Name(),
		})
	}

	if payload.AbstractText != "" {
		title := payload.Heading
		if title == "" {
			title = payload.AbstractText
		}
		addResult(title, payload.AbstractURL, payload.AbstractText)
	}

	for _, res := range payload.Results {
		addResult(res.Text, res.FirstURL, res.Text)
	}

	var walkTopics func(topics []ddgTopic)
	walkTopics = func(topics []ddgTopic) {
		for _, topic := range topics {
			if len(results) >= PageSize {
				return
			}
			if len(topic.Topics) > 0 {
				walkTopics(topic.Topics)
				continue
			}
			addResult(topic.Text, topic.FirstURL, topic.Text)
		}
	}
	walkTopics(payload.RelatedTopics)

	page.Results = results
	return page, nil
}
