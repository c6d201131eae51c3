// Package automation is the single entry point for driving a chat page. It
// maps typed requests onto the transcript extractor, the status indicator, the
// menu controller and the analyzer.
package automation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/entrhq/threadsweep/pkg/analyzer"
	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/indicator"
	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/menu"
	"github.com/entrhq/threadsweep/pkg/page"
	"github.com/entrhq/threadsweep/pkg/transcript"
)

// RequestType names an operation.
type RequestType string

const (
	GetThreadMessages RequestType = "GET_THREAD_MESSAGES"
	ShowBadge         RequestType = "SHOW_BADGE"
	TriggerArchive    RequestType = "TRIGGER_ARCHIVE"
	TriggerDelete     RequestType = "TRIGGER_DELETE"
	AnalyzeThread     RequestType = "ANALYZE_THREAD"
	GetDefaultPrompt  RequestType = "GET_DEFAULT_PROMPT"
)

// Menu item labels clicked by the trigger requests.
const (
	ArchiveLabel = "archive"
	DeleteLabel  = "delete"
)

// Error strings returned to callers.
const (
	errUnknownRequest = "Unknown request type"
	errInvalidRequest = "Invalid request"
)

// ErrNoAnalyzer is reported by ANALYZE_THREAD when no analyzer is configured.
var ErrNoAnalyzer = errors.New("no analyzer configured")

// Request is one call into the facade. ID is echoed in the response and
// generated when empty.
type Request struct {
	ID       string                 `json:"id,omitempty"`
	Type     RequestType            `json:"type"`
	Analysis *evaluation.Evaluation `json:"analysis,omitempty"`
	ThreadID string                 `json:"threadId,omitempty"`
	Messages transcript.Transcript  `json:"messages,omitempty"`
}

// Response is the result of a Request.
type Response struct {
	ID       string                 `json:"id"`
	OK       bool                   `json:"ok"`
	Messages transcript.Transcript  `json:"messages,omitzero"`
	ThreadID string                 `json:"threadId,omitempty"`
	Analysis *evaluation.Evaluation `json:"analysis,omitempty"`
	Prompt   string                 `json:"prompt,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Analyzer evaluates transcripts. *analyzer.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, t transcript.Transcript) (*evaluation.Evaluation, error)
	SystemPrompt() string
}

// Facade serves requests against one page.
type Facade struct {
	doc       page.Document
	extractor *transcript.Extractor
	indicator *indicator.Manager
	menu      *menu.Controller
	analyzer  Analyzer
	clock     clockwork.Clock
	logger    *logging.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithAnalyzer enables ANALYZE_THREAD and personalizes GET_DEFAULT_PROMPT.
func WithAnalyzer(a Analyzer) Option {
	return func(f *Facade) {
		f.analyzer = a
	}
}

// WithClock sets the clock shared by the indicator and the menu controller.
func WithClock(clock clockwork.Clock) Option {
	return func(f *Facade) {
		f.clock = clock
	}
}

// WithLogger sets the diagnostics logger. Components log under sub-names.
func WithLogger(logger *logging.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithIndicator replaces the default indicator manager.
func WithIndicator(m *indicator.Manager) Option {
	return func(f *Facade) {
		f.indicator = m
	}
}

// WithMenuController replaces the default menu controller.
func WithMenuController(c *menu.Controller) Option {
	return func(f *Facade) {
		f.menu = c
	}
}

// New creates a facade for doc.
func New(doc page.Document, opts ...Option) *Facade {
	f := &Facade{
		doc:    doc,
		clock:  clockwork.NewRealClock(),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.extractor = transcript.NewExtractor(doc, transcript.WithLogger(f.logger.Named("extractor")))
	if f.indicator == nil {
		f.indicator = indicator.NewManager(doc,
			indicator.WithClock(f.clock),
			indicator.WithLogger(f.logger.Named("indicator")))
	}
	if f.menu == nil {
		f.menu = menu.NewController(doc,
			menu.WithClock(f.clock),
			menu.WithLogger(f.logger.Named("menu")))
	}
	return f
}

// Indicator exposes the page's badge manager.
func (f *Facade) Indicator() *indicator.Manager {
	return f.indicator
}

// Identity is the conversation currently shown by the page.
func (f *Facade) Identity() page.Identity {
	return page.CurrentIdentity(f.doc)
}

// Handle dispatches req. It never returns an error; failures are reported in
// the response.
func (f *Facade) Handle(ctx context.Context, req Request) Response {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	resp := f.dispatch(ctx, req)
	resp.ID = id
	f.logger.Debugf("request %s %s ok=%v", id, req.Type, resp.OK)
	return resp
}

func (f *Facade) dispatch(ctx context.Context, req Request) Response {
	switch req.Type {
	case GetThreadMessages:
		return Response{
			OK:       true,
			Messages: f.extractor.Extract(ctx),
			ThreadID: string(f.Identity()),
		}

	case ShowBadge:
		if req.Analysis == nil {
			return failure(errUnknownRequest)
		}
		if err := f.indicator.Show(*req.Analysis, page.Identity(req.ThreadID)); err != nil {
			f.logger.Warnf("showing badge failed: %v", err)
			return failure(err.Error())
		}
		return Response{OK: true}

	case TriggerArchive:
		return Response{OK: f.menu.PerformMenuAction(ctx, menu.MenuActionRequest{TargetLabel: ArchiveLabel})}

	case TriggerDelete:
		return Response{OK: f.menu.PerformMenuAction(ctx, menu.MenuActionRequest{TargetLabel: DeleteLabel})}

	case AnalyzeThread:
		if req.Messages == nil {
			return failure(errInvalidRequest)
		}
		if f.analyzer == nil {
			return failure(ErrNoAnalyzer.Error())
		}
		eval, err := f.analyzer.Analyze(ctx, req.Messages)
		if err != nil {
			f.logger.Warnf("analysis failed: %v", err)
			return failure(err.Error())
		}
		return Response{OK: true, Analysis: eval}

	case GetDefaultPrompt:
		if f.analyzer != nil {
			return Response{OK: true, Prompt: f.analyzer.SystemPrompt()}
		}
		return Response{OK: true, Prompt: analyzer.DefaultSystemPrompt()}

	default:
		return failure(errUnknownRequest)
	}
}

func failure(msg string) Response {
	return Response{OK: false, Error: msg}
}
