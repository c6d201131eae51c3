// Package analyzer asks a language model to evaluate a conversation transcript.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/transcript"
)

// Temperature is the sampling temperature used for every evaluation.
const Temperature = 0.3

// Classified analyzer failures. Callers match them with errors.Is.
var (
	ErrMissingAPIKey     = errors.New("no API key configured")
	ErrUnauthorized      = errors.New("invalid API key")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrEmptyResponse     = errors.New("empty model response")
	ErrEmptyTranscript   = errors.New("no messages to analyze")
)

// Completer sends one system+user exchange to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Analyzer turns transcripts into evaluations.
type Analyzer struct {
	completer Completer
	prompt    PromptOptions
	budget    int
	logger    *logging.Logger

	counterOnce sync.Once
	counter     TokenCounter
	model       string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithPromptOptions personalizes the system prompt.
func WithPromptOptions(p PromptOptions) Option {
	return func(a *Analyzer) {
		a.prompt = p
	}
}

// WithMaxInputTokens bounds the transcript size. Zero or less disables trimming.
func WithMaxInputTokens(n int) Option {
	return func(a *Analyzer) {
		a.budget = n
	}
}

// WithTokenCounter replaces the tiktoken counter.
func WithTokenCounter(c TokenCounter) Option {
	return func(a *Analyzer) {
		a.counter = c
	}
}

// WithTokenizerModel selects the tiktoken encoding by model name.
func WithTokenizerModel(model string) Option {
	return func(a *Analyzer) {
		a.model = model
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Analyzer backed by completer.
func New(completer Completer, opts ...Option) *Analyzer {
	a := &Analyzer{
		completer: completer,
		budget:    DefaultMaxInputTokens,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SystemPrompt returns the prompt this analyzer sends.
func (a *Analyzer) SystemPrompt() string {
	return SystemPrompt(a.prompt)
}

// Analyze evaluates t. The returned evaluation has been validated.
func (a *Analyzer) Analyze(ctx context.Context, t transcript.Transcript) (*evaluation.Evaluation, error) {
	if len(t) == 0 {
		return nil, ErrEmptyTranscript
	}

	fitted, trimmed := FitBudget(t, a.budget, a.tokenCounter())
	if trimmed {
		a.logger.Infof("transcript trimmed from %d to %d messages to fit %d tokens", len(t), len(fitted), a.budget)
	}

	a.logger.Debugf("analyzing %d messages with %s", len(fitted), a.completer.Name())
	reply, err := a.completer.Complete(ctx, a.SystemPrompt(), UserPrompt(fitted))
	if err != nil {
		a.logger.Warnf("analysis request failed: %v", err)
		return nil, err
	}

	eval, err := ParseEvaluation(reply)
	if err != nil {
		a.logger.Warnf("analysis response rejected: %v", err)
		return nil, err
	}
	a.logger.Infof("analysis complete: %s", eval.BadgeText())
	return eval, nil
}

func (a *Analyzer) tokenCounter() TokenCounter {
	a.counterOnce.Do(func() {
		if a.counter == nil {
			a.counter = NewTokenCounter(a.model)
		}
	})
	return a.counter
}

var fencePattern = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// ParseEvaluation decodes a model reply, tolerating a surrounding code fence.
func ParseEvaluation(reply string) (*evaluation.Evaluation, error) {
	content := strings.TrimSpace(reply)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	raw := strings.TrimSpace(fencePattern.ReplaceAllString(content, ""))

	var eval evaluation.Evaluation
	if err := json.Unmarshal([]byte(raw), &eval); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if err := eval.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &eval, nil
}
