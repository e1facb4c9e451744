package websearch

import (
	"strings"
	"time"

	"github.com/hession/coco/internal/config"
)

// NewProvider builds the provider selected in the search config.
func NewProvider(cfg config.SearchConfig) Provider {
	timeout := 15 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "searxng":
		return NewSearXNGProvider(nonGoogleBaseURL(cfg.BaseURL), cfg.UserAgent, cfg.APIKey, timeout)
	case "duckduckgo", "ddg":
		return NewDuckDuckGoProvider(nonGoogleBaseURL(cfg.BaseURL), cfg.UserAgent, timeout)
	default:
		return NewGoogleProvider(cfg.BaseURL, cfg.APIKey, cfg.EngineID, cfg.UserAgent, timeout)
	}
}

// nonGoogleBaseURL drops the google endpoint left over from the default
// config so the provider falls back to its own default.
func nonGoogleBaseURL(baseURL string) string {
	if config.IsGoogleEndpoint(baseURL) {
		return ""
	}
	return baseURL
}
