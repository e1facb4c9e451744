package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptConfig conversation text used by the interactive front-ends
type PromptConfig struct {
	Language string                     `yaml:"language"`
	Prompts  map[string]LanguagePrompts `yaml:"prompts"`
}

// LanguagePrompts prompts for a specific language
type LanguagePrompts struct {
	Welcome       string `yaml:"welcome"`
	AskSubject    string `yaml:"ask_subject"`
	AskPlace      string `yaml:"ask_place"`
	AskExtra      string `yaml:"ask_extra"`
	Searching     string `yaml:"searching"`
	ResultsHeader string `yaml:"results_header"`
	NoResults     string `yaml:"no_results"`
	VisitSite     string `yaml:"visit_site"`
	NoExtras      string `yaml:"no_extras"`
}

// DefaultPromptConfig returns default prompt configuration
func DefaultPromptConfig() *PromptConfig {
	return &PromptConfig{
		Language: "es",
		Prompts: map[string]LanguagePrompts{
			"es": {
				Welcome:       "¡Hola! Soy Coco, me gustaría ayudarte a encontrar un lugar para comer :)",
				AskSubject:    "¿Qué te gustaría comer? ",
				AskPlace:      "¿En qué ubicación te gustaría que esté el restaurante? ",
				AskExtra:      "¿Hay detalles extras que te gustaría que tenga el restaurante? ",
				Searching:     "Muchas gracias :) Voy a buscar los restaurantes que te puedan servir...",
				ResultsHeader: "Tus resultados son los siguientes:",
				NoResults:     "No se encontraron resultados para tu búsqueda :(",
				VisitSite:     "Ir al sitio web",
				NoExtras:      "no",
			},
			"en": {
				Welcome:       "Hi! I'm Coco, I'd like to help you find a place to eat :)",
				AskSubject:    "What would you like to eat? ",
				AskPlace:      "Where should the restaurant be? ",
				AskExtra:      "Any extra details the restaurant should have? ",
				Searching:     "Thanks :) Looking for restaurants that could work for you...",
				ResultsHeader: "Here are your results:",
				NoResults:     "No results were found for your search :(",
				VisitSite:     "Visit website",
				NoExtras:      "no",
			},
		},
	}
}

// PromptConfigPath returns the prompt config file path
func PromptConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompt.yaml"), nil
}

// LoadPromptConfig loads prompt configuration from file
func LoadPromptConfig() (*PromptConfig, error) {
	configPath, err := PromptConfigPath()
	if err != nil {
		return DefaultPromptConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultPromptConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt config: %w", err)
	}

	cfg := DefaultPromptConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse prompt config: %w", err)
	}

	return cfg, nil
}

// GetPrompts returns prompts for the configured language
func (p *PromptConfig) GetPrompts() LanguagePrompts {
	if prompts, ok := p.Prompts[p.Language]; ok {
		return prompts
	}
	// Fall back to Spanish if configured language not found
	if prompts, ok := p.Prompts["es"]; ok {
		return prompts
	}
	return LanguagePrompts{}
}
