// Package popup is the interactive terminal view of one conversation: it
// shows a stored or fresh evaluation and offers the page's archive and delete
// actions.
package popup

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/threadsweep/pkg/automation"
	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/history"
	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/page"
)

// APIKeyHint is shown under errors that mention the API key.
const APIKeyHint = "Set OPENAI_API_KEY or GEMINI_API_KEY, pass --api-key, or set llm.api_key in ~/.threadsweep/config.json."

// Messages shown for expected failures.
const (
	noMessagesText = "No messages found on this page. Scroll the conversation into view and try again."
	analysisFailed = "Analysis failed."
)

var apiKeyPattern = regexp.MustCompile(`(?i)api key`)

// Handler serves automation requests. *automation.Facade satisfies it.
type Handler interface {
	Handle(ctx context.Context, req automation.Request) automation.Response
}

// Options configures the popup.
type Options struct {
	// Handler reaches the page and the analyzer.
	Handler Handler

	// Identity is the conversation the popup is opened on.
	Identity page.Identity

	// History supplies cached results and receives fresh ones. May be nil.
	History *history.Store

	// Copy writes text to the clipboard. Defaults to the system clipboard.
	Copy func(string) error

	Logger *logging.Logger
}

type viewState int

const (
	stateIdle viewState = iota
	stateBusy
	stateResult
	stateError
)

// model is the popup's Bubble Tea state.
type model struct {
	ctx     context.Context
	handler Handler
	store   *history.Store
	copy    func(string) error
	logger  *logging.Logger

	identity page.Identity
	spinner  spinner.Model

	state      viewState
	busyText   string
	eval       *evaluation.Evaluation
	fromCache  bool
	err        string
	apiKeyHint bool
	status     string

	width int
}

// analysisDoneMsg carries a fresh evaluation or the failure that prevented it.
type analysisDoneMsg struct {
	eval *evaluation.Evaluation
	err  error
}

// actionDoneMsg reports a page menu action.
type actionDoneMsg struct {
	label string
	ok    bool
}

// statusMsg replaces the one-line status under the result.
type statusMsg string

func newModel(ctx context.Context, opts Options) *model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	cp := opts.Copy
	if cp == nil {
		cp = clipboard.WriteAll
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	m := &model{
		ctx:      ctx,
		handler:  opts.Handler,
		store:    opts.History,
		copy:     cp,
		logger:   logger,
		identity: opts.Identity,
		spinner:  s,
	}
	m.restore()
	return m
}

// restore shows the pending shortcut result for this conversation, or else its
// cached history entry.
func (m *model) restore() {
	if m.store == nil {
		return
	}
	pending, ok, err := m.store.TakePending(m.identity)
	if err != nil {
		m.logger.Warnf("taking pending result failed: %v", err)
	}
	if ok {
		m.showResult(&pending, false)
		return
	}
	if entry, ok := m.store.Get(m.identity); ok {
		eval := entry.Evaluation
		m.showResult(&eval, true)
	}
}

func (m *model) showResult(eval *evaluation.Evaluation, fromCache bool) {
	m.state = stateResult
	m.eval = eval
	m.fromCache = fromCache
	m.err = ""
	m.apiKeyHint = false
}

func (m *model) showError(msg string) {
	m.state = stateError
	m.err = msg
	m.apiKeyHint = apiKeyPattern.MatchString(msg)
}

func (m *model) Init() tea.Cmd {
	if m.eval != nil {
		return m.badgeCmd(*m.eval)
	}
	return nil
}

// analyzeCmd reads the page, analyzes it and records the result.
func (m *model) analyzeCmd() tea.Cmd {
	return func() tea.Msg {
		got := m.handler.Handle(m.ctx, automation.Request{Type: automation.GetThreadMessages})
		if !got.OK {
			return analysisDoneMsg{err: responseError(got, "Could not read the page.")}
		}
		if len(got.Messages) == 0 {
			return analysisDoneMsg{err: errors.New(noMessagesText)}
		}

		resp := m.handler.Handle(m.ctx, automation.Request{Type: automation.AnalyzeThread, Messages: got.Messages})
		if !resp.OK || resp.Analysis == nil {
			return analysisDoneMsg{err: responseError(resp, analysisFailed)}
		}

		if m.store != nil && m.identity != "" {
			if err := m.store.Save(m.identity, *resp.Analysis); err != nil {
				m.logger.Warnf("saving result for %s failed: %v", m.identity, err)
			}
		}
		m.showBadge(*resp.Analysis)
		return analysisDoneMsg{eval: resp.Analysis}
	}
}

func (m *model) badgeCmd(eval evaluation.Evaluation) tea.Cmd {
	return func() tea.Msg {
		m.showBadge(eval)
		return nil
	}
}

func (m *model) showBadge(eval evaluation.Evaluation) {
	resp := m.handler.Handle(m.ctx, automation.Request{
		Type:     automation.ShowBadge,
		Analysis: &eval,
		ThreadID: string(m.identity),
	})
	if !resp.OK {
		m.logger.Warnf("showing badge failed: %s", resp.Error)
	}
}

func (m *model) actionCmd(req automation.RequestType, label string) tea.Cmd {
	return func() tea.Msg {
		resp := m.handler.Handle(m.ctx, automation.Request{Type: req})
		return actionDoneMsg{label: label, ok: resp.OK}
	}
}

func (m *model) copyCmd(eval evaluation.Evaluation) tea.Cmd {
	return func() tea.Msg {
		if err := m.copy(FormatResult(eval)); err != nil {
			m.logger.Warnf("copy failed: %v", err)
			return statusMsg("Copy failed")
		}
		return statusMsg("Copied!")
	}
}

func responseError(resp automation.Response, fallback string) error {
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return errors.New(fallback)
}

// FormatResult renders eval as the plain text placed on the clipboard.
func FormatResult(eval evaluation.Evaluation) string {
	return fmt.Sprintf("Summary: %s\nCategory: %s\nValue: %s / 10\nRecommendation: %s",
		orDash(eval.Summary), orDash(eval.Category), eval.FormatValue(), orDash(string(eval.Recommendation)))
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
