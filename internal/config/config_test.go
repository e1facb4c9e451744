package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Search.Provider != "google" {
		t.Errorf("Expected provider to be google, got %s", cfg.Search.Provider)
	}

	if cfg.Search.MaxCalls != 3 {
		t.Errorf("Expected MaxCalls to be 3, got %d", cfg.Search.MaxCalls)
	}

	if cfg.Ranking.TopK != 5 {
		t.Errorf("Expected TopK to be 5, got %d", cfg.Ranking.TopK)
	}

	if cfg.Ranking.Partitions != 2 {
		t.Errorf("Expected Partitions to be 2, got %d", cfg.Ranking.Partitions)
	}

	if cfg.Query.LocaleQualifier != "Costa Rica" {
		t.Errorf("Expected LocaleQualifier to be Costa Rica, got %s", cfg.Query.LocaleQualifier)
	}

	if cfg.Fetch.TimeoutSeconds != 3 {
		t.Errorf("Expected fetch timeout to be 3, got %d", cfg.Fetch.TimeoutSeconds)
	}

	if len(cfg.Ranking.Denylist) != len(DefaultDenylist) {
		t.Errorf("Expected %d denylist keywords, got %d", len(DefaultDenylist), len(cfg.Ranking.Denylist))
	}
}

func TestDefaultConfig_DenylistIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ranking.Denylist[0] = "changed"

	if DefaultDenylist[0] == "changed" {
		t.Error("Mutating a config denylist must not change DefaultDenylist")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			mutate:  func(cfg *Config) { cfg.Search.Provider = "altavista" },
			wantErr: true,
		},
		{
			name: "searxng without base url",
			mutate: func(cfg *Config) {
				cfg.Search.Provider = "searxng"
				cfg.Search.BaseURL = ""
			},
			wantErr: true,
		},
		{
			name:    "searxng with the google default base url",
			mutate:  func(cfg *Config) { cfg.Search.Provider = "searxng" },
			wantErr: true,
		},
		{
			name: "searxng with its own base url",
			mutate: func(cfg *Config) {
				cfg.Search.Provider = "searxng"
				cfg.Search.BaseURL = "http://localhost:8888"
			},
			wantErr: false,
		},
		{
			name:    "duckduckgo keeps the google default base url",
			mutate:  func(cfg *Config) { cfg.Search.Provider = "duckduckgo" },
			wantErr: false,
		},
		{
			name:    "zero max calls",
			mutate:  func(cfg *Config) { cfg.Search.MaxCalls = 0 },
			wantErr: true,
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(cfg *Config) { cfg.Fetch.TimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "empty stopwords path",
			mutate:  func(cfg *Config) { cfg.Query.StopwordsPath = " " },
			wantErr: true,
		},
		{
			name:    "zero top k",
			mutate:  func(cfg *Config) { cfg.Ranking.TopK = 0 },
			wantErr: true,
		},
		{
			name:    "zero concurrent requests",
			mutate:  func(cfg *Config) { cfg.Ranking.ConcurrentRequests = 0 },
			wantErr: true,
		},
		{
			name:    "zero partitions",
			mutate:  func(cfg *Config) { cfg.Ranking.Partitions = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("API_CALLS_AMOUNT", "")

	configTestDir := filepath.Join(tmpDir, "config")
	SetConfigDir(configTestDir)

	cfg := DefaultConfig()
	cfg.Search.APIKey = "test-api-key"
	cfg.Ranking.Denylist = []string{"yelp"}

	if err := Save(cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	configPath := filepath.Join(configTestDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file not created")
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.Search.APIKey != cfg.Search.APIKey {
		t.Errorf("API Key mismatch: expected %s, got %s", cfg.Search.APIKey, loadedCfg.Search.APIKey)
	}
	if len(loadedCfg.Ranking.Denylist) != 1 || loadedCfg.Ranking.Denylist[0] != "yelp" {
		t.Errorf("Denylist mismatch: got %v", loadedCfg.Ranking.Denylist)
	}
}

func TestLoad_SecretsAndEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	SetConfigDir(tmpDir)
	t.Setenv("API_CALLS_AMOUNT", "7")
	t.Setenv("API_KEY", "")
	t.Setenv("SEARCH_ENGINE_ID", "")

	secrets := "# search credentials\nSEARCH_API_KEY=from-secrets\nSEARCH_ENGINE_ID=cx-123\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".secrets"), []byte(secrets), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Search.APIKey != "from-secrets" {
		t.Errorf("Expected API key from secrets, got %q", cfg.Search.APIKey)
	}
	if cfg.Search.EngineID != "cx-123" {
		t.Errorf("Expected engine id from secrets, got %q", cfg.Search.EngineID)
	}
	if cfg.Search.MaxCalls != 7 {
		t.Errorf("Expected API_CALLS_AMOUNT to set MaxCalls to 7, got %d", cfg.Search.MaxCalls)
	}
	if !cfg.IsSearchConfigured() {
		t.Error("Search should be configured with key and engine id")
	}
}

func TestIsSearchConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.APIKey = ""
	cfg.Search.EngineID = ""

	if cfg.IsSearchConfigured() {
		t.Error("Google provider without credentials should not be configured")
	}

	cfg.Search.Provider = "duckduckgo"
	if !cfg.IsSearchConfigured() {
		t.Error("DuckDuckGo needs no credentials")
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.APIKey = "AIzaSyVerySecretKey"

	out := cfg.String()
	if strings.Contains(out, "AIzaSyVerySecretKey") {
		t.Error("String() leaked the API key")
	}
	if !strings.Contains(out, "AIzaSyVe...") {
		t.Errorf("Expected redacted key prefix in output, got:\n%s", out)
	}
}

func TestPromptConfig_Fallback(t *testing.T) {
	p := DefaultPromptConfig()
	p.Language = "fr"

	if got := p.GetPrompts().AskSubject; got != "¿Qué te gustaría comer? " {
		t.Errorf("Expected Spanish fallback, got %q", got)
	}

	p.Language = "en"
	if got := p.GetPrompts().NoExtras; got != "no" {
		t.Errorf("Expected english NoExtras to be no, got %q", got)
	}
}

func TestParseSecrets(t *testing.T) {
	input := "# search credentials\n\nSEARCH_API_KEY = \"quoted-key\"\nSEARCH_ENGINE_ID='cx-9'\nBROKEN LINE\nOTHER=a=b\n"

	secrets, err := parseSecrets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseSecrets() error = %v", err)
	}

	t.Setenv("API_KEY", "from-env")
	t.Setenv("SEARCH_ENGINE_ID", "")
	if got := secrets.GetSearchAPIKey(); got != "quoted-key" {
		t.Errorf("Expected quotes to be stripped, got %q", got)
	}
	if got := secrets.GetSearchEngineID(); got != "cx-9" {
		t.Errorf("Expected cx-9, got %q", got)
	}
	if got := secrets.Get("OTHER"); got != "a=b" {
		t.Errorf("Expected value after the first '=', got %q", got)
	}
	if got := NewSecrets().GetSearchAPIKey(); got != "from-env" {
		t.Errorf("Expected API_KEY env fallback, got %q", got)
	}
}

func TestIsGoogleEndpoint(t *testing.T) {
	if !IsGoogleEndpoint(DefaultConfig().Search.BaseURL) {
		t.Error("Default base url should be the google endpoint")
	}
	if IsGoogleEndpoint("http://localhost:8888") {
		t.Error("A searxng url is not the google endpoint")
	}
}
