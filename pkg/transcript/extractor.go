package transcript

import (
	"context"

	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/page"
)

// Extractor reads the conversation displayed by a page.
type Extractor struct {
	doc        page.Querier
	strategies []Strategy
	logger     *logging.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStrategies replaces the default strategy table. Order is priority.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an extractor over doc using DefaultStrategies.
func NewExtractor(doc page.Querier, opts ...Option) *Extractor {
	e := &Extractor{
		doc:        doc,
		strategies: DefaultStrategies(),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	return e
}

// Extract returns the transcript of the current page. The first strategy
// that yields any candidate decides the result; an unrecognized page gives
// an empty transcript. Extract never fails.
func (e *Extractor) Extract(ctx context.Context) Transcript {
	for _, s := range e.strategies {
		if ctx.Err() != nil {
			e.logger.Warnf("extraction cancelled: %v", ctx.Err())
			return Transcript{}
		}

		candidates, err := s.Candidates(e.doc)
		if err != nil {
			e.logger.Warnf("strategy %s failed: %v", s.Name(), err)
			continue
		}
		if len(candidates) == 0 {
			e.logger.Debugf("strategy %s found no elements", s.Name())
			continue
		}

		out := Build(candidates)
		e.logger.Infof("strategy %s matched %d elements, %d messages", s.Name(), len(candidates), len(out))
		return out
	}

	e.logger.Infof("no strategy matched, returning empty transcript")
	return Transcript{}
}

// Build normalizes candidates in order, dropping empty texts and any text
// whose fingerprint was already seen.
func Build(candidates []Candidate) Transcript {
	out := make(Transcript, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		text := Normalize(c.Content)
		if text == "" {
			continue
		}
		fp := Fingerprint(text)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, Message{Role: c.Role, Text: text})
	}
	return out
}
