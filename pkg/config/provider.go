package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/entrhq/threadsweep/pkg/analyzer"
	"github.com/entrhq/threadsweep/pkg/logging"
)

// Overrides are command-line values; non-empty fields win over everything else.
type Overrides struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// ResolvedLLM is the backend configuration after applying precedence.
type ResolvedLLM struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ResolveLLM applies CLI flags > environment > config file > defaults.
// m may be nil when no config file is in use.
func ResolveLLM(m *Manager, cli Overrides) ResolvedLLM {
	var file *LLMSettings
	if m != nil {
		if section := m.LLM(); section != nil {
			snap := section.Snapshot()
			file = &snap
		}
	}

	r := ResolvedLLM{
		Provider: cli.Provider,
		Model:    cli.Model,
		BaseURL:  cli.BaseURL,
		APIKey:   cli.APIKey,
	}

	if r.Provider == "" && file != nil {
		r.Provider = file.Provider
	}
	if r.Provider == "" {
		r.Provider = ProviderOpenAI
	}

	if r.APIKey == "" {
		r.APIKey = os.Getenv(apiKeyEnv(r.Provider))
	}
	if r.BaseURL == "" && r.Provider == ProviderOpenAI {
		r.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if file != nil {
		if r.Model == "" {
			r.Model = file.Model
		}
		if r.BaseURL == "" {
			r.BaseURL = file.BaseURL
		}
		if r.APIKey == "" {
			r.APIKey = file.APIKey
		}
	}

	if r.Model == "" {
		r.Model = defaultModel(r.Provider)
	}
	return r
}

// BuildAnalyzer creates the analyzer described by m and cli.
func BuildAnalyzer(ctx context.Context, m *Manager, cli Overrides, logger *logging.Logger) (*analyzer.Analyzer, error) {
	r := ResolveLLM(m, cli)
	if r.APIKey == "" {
		return nil, fmt.Errorf("%w: set %s, pass --api-key, or configure llm.api_key in the config file",
			analyzer.ErrMissingAPIKey, apiKeyEnv(r.Provider))
	}

	var (
		completer analyzer.Completer
		err       error
	)
	switch r.Provider {
	case ProviderOpenAI:
		completer, err = analyzer.NewOpenAICompleter(r.APIKey,
			analyzer.WithOpenAIModel(r.Model),
			analyzer.WithOpenAIBaseURL(r.BaseURL))
	case ProviderGemini:
		opts := []analyzer.GeminiOption{analyzer.WithGeminiModel(r.Model)}
		if r.BaseURL != "" {
			opts = append(opts, analyzer.WithGeminiBaseURL(r.BaseURL))
		}
		completer, err = analyzer.NewGeminiCompleter(ctx, r.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", r.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer backend: %w", err)
	}

	settings := NewAnalysisSection().Snapshot()
	if m != nil {
		if a := m.Analysis(); a != nil {
			settings = a.Snapshot()
		}
	}

	return analyzer.New(completer,
		analyzer.WithPromptOptions(analyzer.PromptOptions{
			UserProfile:  settings.UserProfile,
			Interests:    settings.Interests,
			Categories:   settings.Categories,
			CustomPrompt: settings.CustomPrompt,
		}),
		analyzer.WithMaxInputTokens(settings.MaxInputTokens),
		analyzer.WithTokenizerModel(r.Model),
		analyzer.WithLogger(logger),
	), nil
}

func apiKeyEnv(provider string) string {
	if provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return analyzer.DefaultGeminiModel
	}
	return analyzer.DefaultOpenAIModel
}
