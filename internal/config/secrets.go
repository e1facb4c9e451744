package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Secret keys read from the .secrets file.
const (
	SecretSearchAPIKey   = "SEARCH_API_KEY"
	SecretSearchEngineID = "SEARCH_ENGINE_ID"
)

// Secrets holds the key=value pairs of the .secrets file
type Secrets struct {
	values map[string]string
}

// NewSecrets creates an empty Secrets
func NewSecrets() *Secrets {
	return &Secrets{values: make(map[string]string)}
}

// SecretsPath returns the secrets file path
func SecretsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".secrets"), nil
}

// LoadSecrets reads <config dir>/.secrets. A missing file yields empty
// secrets and no error.
func LoadSecrets() (*Secrets, error) {
	path, err := SecretsPath()
	if err != nil {
		return NewSecrets(), nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewSecrets(), nil
	}
	if err != nil {
		return NewSecrets(), fmt.Errorf("failed to open secrets: %w", err)
	}
	defer f.Close()

	return parseSecrets(f)
}

// parseSecrets reads KEY=VALUE lines. Blank lines and # comments are
// skipped; values may be wrapped in single or double quotes.
func parseSecrets(r io.Reader) (*Secrets, error) {
	secrets := NewSecrets()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		secrets.values[strings.TrimSpace(key)] = value
	}
	return secrets, scanner.Err()
}

// Get returns the value for a key
func (s *Secrets) Get(key string) string {
	if s == nil || s.values == nil {
		return ""
	}
	return s.values[key]
}

// GetSearchAPIKey returns the search API key from secrets, falling back to
// the API_KEY environment variable the bot deployments export.
func (s *Secrets) GetSearchAPIKey() string {
	return s.lookup(SecretSearchAPIKey, "API_KEY")
}

// GetSearchEngineID returns the custom search engine identifier
func (s *Secrets) GetSearchEngineID() string {
	return s.lookup(SecretSearchEngineID, SecretSearchEngineID)
}

func (s *Secrets) lookup(key, envKey string) string {
	if value := s.Get(key); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(envKey))
}
