package config

import (
	"fmt"
	"sync"
)

// SectionIDAnalysis is the identifier for the analysis personalization section.
const SectionIDAnalysis = "analysis"

// DefaultMaxInputTokens bounds the transcript sent to the model.
const DefaultMaxInputTokens = 12000

// AnalysisSection personalizes how conversations are judged.
type AnalysisSection struct {
	UserProfile    string
	Interests      string
	Categories     string
	CustomPrompt   string
	MaxInputTokens int
	mu             sync.RWMutex
}

// NewAnalysisSection creates the section with default settings.
func NewAnalysisSection() *AnalysisSection {
	return &AnalysisSection{MaxInputTokens: DefaultMaxInputTokens}
}

func (s *AnalysisSection) ID() string {
	return SectionIDAnalysis
}

func (s *AnalysisSection) Title() string {
	return "Analysis"
}

func (s *AnalysisSection) Description() string {
	return "Who you are and what you care about. custom_prompt replaces the generated prompt entirely."
}

func (s *AnalysisSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"user_profile":     s.UserProfile,
		"interests":        s.Interests,
		"categories":       s.Categories,
		"custom_prompt":    s.CustomPrompt,
		"max_input_tokens": s.MaxInputTokens,
	}
}

func (s *AnalysisSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["user_profile"].(string); ok {
		s.UserProfile = v
	}
	if v, ok := data["interests"].(string); ok {
		s.Interests = v
	}
	if v, ok := data["categories"].(string); ok {
		s.Categories = v
	}
	if v, ok := data["custom_prompt"].(string); ok {
		s.CustomPrompt = v
	}
	if raw, exists := data["max_input_tokens"]; exists {
		n, ok := toInt(raw)
		if !ok {
			return fmt.Errorf("max_input_tokens must be a number, got %T", raw)
		}
		s.MaxInputTokens = n
	}
	return nil
}

func (s *AnalysisSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.MaxInputTokens < 0 {
		return fmt.Errorf("max_input_tokens must not be negative")
	}
	return nil
}

func (s *AnalysisSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserProfile = ""
	s.Interests = ""
	s.Categories = ""
	s.CustomPrompt = ""
	s.MaxInputTokens = DefaultMaxInputTokens
}

// Snapshot returns a copy of the settings safe to read without locking.
func (s *AnalysisSection) Snapshot() AnalysisSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AnalysisSettings{
		UserProfile:    s.UserProfile,
		Interests:      s.Interests,
		Categories:     s.Categories,
		CustomPrompt:   s.CustomPrompt,
		MaxInputTokens: s.MaxInputTokens,
	}
}

// AnalysisSettings is a point-in-time copy of AnalysisSection.
type AnalysisSettings struct {
	UserProfile    string
	Interests      string
	Categories     string
	CustomPrompt   string
	MaxInputTokens int
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}
