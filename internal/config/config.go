package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Query     QueryConfig     `yaml:"query"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
}

// SearchConfig search API configuration
type SearchConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	EngineID       string `yaml:"engine_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxCalls       int    `yaml:"max_calls"`
	UserAgent      string `yaml:"user_agent"`
}

// FetchConfig candidate page fetch configuration
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes"`
	StripHTML      bool   `yaml:"strip_html"`
	UserAgent      string `yaml:"user_agent"`
}

// QueryConfig query normalization configuration
type QueryConfig struct {
	StopwordsPath   string `yaml:"stopwords_path"`
	LocaleQualifier string `yaml:"locale_qualifier"`
}

// RankingConfig ranking configuration
type RankingConfig struct {
	TopK               int      `yaml:"top_k"`
	Partitions         int      `yaml:"partitions"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	Denylist           []string `yaml:"denylist"`
}

// TelemetryConfig event and log configuration
type TelemetryConfig struct {
	DBPath   string `yaml:"db_path"`
	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`
	Console  bool   `yaml:"console"`
}

// ServerConfig HTTP front-end configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultDenylist hostname keywords of sites that publish listicles or
// aggregated reviews instead of a restaurant's own page.
var DefaultDenylist = []string{
	"instagram", "moovitapp", "five", "mochil", "ihop", "economi", "miami",
	"new", "yelp", "tips", "ucr", "deli", "wiki", "viaje", "travel", "facebook",
	"twitter", "free", "top", "expedia", "tiktok", "find", "search", "foursquare",
	"baix", "trip", "pdf", "sale",
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	denylist := make([]string, len(DefaultDenylist))
	copy(denylist, DefaultDenylist)
	return &Config{
		Search: SearchConfig{
			Provider:       "google",
			BaseURL:        "https://www.googleapis.com/customsearch/v1",
			APIKey:         "",
			EngineID:       "",
			TimeoutSeconds: 15,
			MaxCalls:       3,
			UserAgent:      "Coco/0.1",
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 3,
			MaxBytes:       2 << 20,
			StripHTML:      false,
			UserAgent:      "Coco/0.1",
		},
		Query: QueryConfig{
			StopwordsPath:   filepath.Join(GetConfigDir(), "stopwords.txt"),
			LocaleQualifier: "Costa Rica",
		},
		Ranking: RankingConfig{
			TopK:               5,
			Partitions:         2,
			ConcurrentRequests: 4,
			Denylist:           denylist,
		},
		Telemetry: TelemetryConfig{
			DBPath:   filepath.Join(homeDir, ".coco", "events.db"),
			LogDir:   LogDir(),
			LogLevel: "info",
			Console:  false,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file and merges with secrets and environment
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.mergeSecrets()
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig() // Use default values as base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.mergeSecrets()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeSecrets fills search credentials that the YAML left empty
func (c *Config) mergeSecrets() {
	secrets, _ := LoadSecrets()
	if secrets == nil {
		return
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = secrets.GetSearchAPIKey()
	}
	if c.Search.EngineID == "" {
		c.Search.EngineID = secrets.GetSearchEngineID()
	}
}

// applyEnv applies API_CALLS_AMOUNT, kept for deployments of the old bot
func (c *Config) applyEnv() {
	raw := strings.TrimSpace(os.Getenv("API_CALLS_AMOUNT"))
	if raw == "" {
		return
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		c.Search.MaxCalls = n
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# Coco Configuration File\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	provider := strings.ToLower(strings.TrimSpace(c.Search.Provider))
	switch provider {
	case "google", "searxng", "duckduckgo", "ddg":
	default:
		return fmt.Errorf("config error: search.provider %q is not supported", c.Search.Provider)
	}
	if provider == "searxng" && strings.TrimSpace(c.Search.BaseURL) == "" {
		return fmt.Errorf("config error: search.base_url cannot be empty for searxng provider")
	}
	if provider == "searxng" && IsGoogleEndpoint(c.Search.BaseURL) {
		return fmt.Errorf("config error: search.base_url must point at a searxng instance, not %s", c.Search.BaseURL)
	}
	if c.Search.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: search.timeout_seconds must be greater than 0")
	}
	if c.Search.MaxCalls <= 0 {
		return fmt.Errorf("config error: search.max_calls must be greater than 0")
	}

	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: fetch.timeout_seconds must be greater than 0")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("config error: fetch.max_bytes must be greater than 0")
	}

	if strings.TrimSpace(c.Query.StopwordsPath) == "" {
		return fmt.Errorf("config error: query.stopwords_path cannot be empty")
	}

	if c.Ranking.TopK <= 0 {
		return fmt.Errorf("config error: ranking.top_k must be greater than 0")
	}
	if c.Ranking.Partitions <= 0 {
		return fmt.Errorf("config error: ranking.partitions must be greater than 0")
	}
	if c.Ranking.ConcurrentRequests <= 0 {
		return fmt.Errorf("config error: ranking.concurrent_requests must be greater than 0")
	}

	return nil
}

// IsGoogleEndpoint reports whether baseURL is the Google Custom Search API.
func IsGoogleEndpoint(baseURL string) bool {
	return strings.Contains(strings.ToLower(baseURL), "googleapis.com")
}

// IsSearchConfigured checks if the selected provider has what it needs
func (c *Config) IsSearchConfigured() bool {
	if strings.ToLower(strings.TrimSpace(c.Search.Provider)) != "google" {
		return true
	}
	return c.Search.APIKey != "" && c.Search.EngineID != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`Coco Configuration:
  Search:
    Provider: %s
    Base URL: %s
    API Key: %s
    Engine ID: %s
    Timeout Seconds: %d
    Max Calls: %d
  Fetch:
    Timeout Seconds: %d
    Max Bytes: %d
    Strip HTML: %v
  Query:
    Stopwords Path: %s
    Locale Qualifier: %s
  Ranking:
    Top K: %d
    Partitions: %d
    Concurrent Requests: %d
    Denylist: %d keywords
  Telemetry:
    DB Path: %s
    Log Dir: %s
    Log Level: %s
  Server:
    Addr: %s`,
		c.Search.Provider,
		c.Search.BaseURL,
		redactAPIKey(c.Search.APIKey),
		redactAPIKey(c.Search.EngineID),
		c.Search.TimeoutSeconds,
		c.Search.MaxCalls,
		c.Fetch.TimeoutSeconds,
		c.Fetch.MaxBytes,
		c.Fetch.StripHTML,
		c.Query.StopwordsPath,
		c.Query.LocaleQualifier,
		c.Ranking.TopK,
		c.Ranking.Partitions,
		c.Ranking.ConcurrentRequests,
		len(c.Ranking.Denylist),
		c.Telemetry.DBPath,
		c.Telemetry.LogDir,
		c.Telemetry.LogLevel,
		c.Server.Addr,
	)
}

func redactAPIKey(value string) string {
	if value == "" {
		return "(not configured)"
	}
	if len(value) > 8 {
		return value[:8] + "..."
	}
	return "***"
}
