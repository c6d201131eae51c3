package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDLLM is the identifier for the model backend section.
	SectionIDLLM = "llm"

	// ProviderOpenAI selects an OpenAI-compatible chat completions API.
	ProviderOpenAI = "openai"

	// ProviderGemini selects the Gemini API.
	ProviderGemini = "gemini"
)

// LLMSettings is a point-in-time copy of the model backend settings.
type LLMSettings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// LLMSection holds the model backend used for analysis. An empty model means
// the provider default.
type LLMSection struct {
	mu       sync.RWMutex
	settings LLMSettings
}

func NewLLMSection() *LLMSection {
	return &LLMSection{settings: LLMSettings{Provider: ProviderOpenAI}}
}

func (s *LLMSection) ID() string    { return SectionIDLLM }
func (s *LLMSection) Title() string { return "Model" }

func (s *LLMSection) Description() string {
	return "Model backend for conversation analysis. provider is openai or gemini; an empty model uses the provider default."
}

func (s *LLMSection) Data() map[string]any {
	snap := s.Snapshot()
	return map[string]any{
		"provider": snap.Provider,
		"model":    snap.Model,
		"base_url": snap.BaseURL,
		"api_key":  snap.APIKey,
	}
}

// SetData applies the string fields present in data. Values of other types
// are ignored, and an empty provider keeps the current one.
func (s *LLMSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	str := func(key string, dst *string) {
		if v, ok := data[key].(string); ok {
			*dst = v
		}
	}
	if v, ok := data["provider"].(string); ok && v != "" {
		s.settings.Provider = v
	}
	str("model", &s.settings.Model)
	str("base_url", &s.settings.BaseURL)
	str("api_key", &s.settings.APIKey)
	return nil
}

// Validate checks the provider name. Credentials are checked when the
// analyzer is built.
func (s *LLMSection) Validate() error {
	switch p := s.Snapshot().Provider; p {
	case ProviderOpenAI, ProviderGemini:
		return nil
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", p, ProviderOpenAI, ProviderGemini)
	}
}

func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = LLMSettings{Provider: ProviderOpenAI}
}

// Snapshot returns a copy of the current settings.
func (s *LLMSection) Snapshot() LLMSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}
