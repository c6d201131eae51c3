// Package live implements page.Document on a real browser tab via Playwright.
package live

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/threadsweep/pkg/logging"
)

// SessionManager owns the Playwright driver and the single chat session.
type SessionManager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	session     *Session
	hosts       *HostMatcher
	logger      *logging.Logger
	initialized bool
}

// NewSessionManager creates a manager that only accepts tabs matching hosts.
func NewSessionManager(hosts *HostMatcher, logger *logging.Logger) *SessionManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionManager{hosts: hosts, logger: logger}
}

// Initialize installs (if needed) and starts the Playwright driver.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver output would interleave with CLI output.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Open returns the chat session, attaching to or launching a browser on first use.
func (m *SessionManager) Open(opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, nil
	}
	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StartURL == "" {
		opts.StartURL = DefaultStartURL
	}

	var (
		session *Session
		err     error
	)
	switch {
	case opts.CDPEndpoint != "":
		session, err = m.attach(opts)
	case opts.UserDataDir != "":
		session, err = m.launchPersistent(opts)
	default:
		session, err = m.launch(opts)
	}
	if err != nil {
		return nil, err
	}

	session.Page.SetDefaultTimeout(opts.Timeout)
	session.CreatedAt = time.Now()
	m.session = session
	m.logger.Infof("session ready on %s (attached=%v)", session.Page.URL(), session.Attached)
	return session, nil
}

func (m *SessionManager) attach(opts SessionOptions) (*Session, error) {
	browser, err := m.playwright.Chromium.ConnectOverCDP(opts.CDPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.CDPEndpoint, err)
	}

	for _, bctx := range browser.Contexts() {
		if p := m.findTab(bctx); p != nil {
			return &Session{Browser: browser, Context: bctx, Page: p, Attached: true}, nil
		}
	}

	contexts := browser.Contexts()
	if len(contexts) == 0 {
		return nil, fmt.Errorf("no browser context at %s; open a chat tab first", opts.CDPEndpoint)
	}
	p, err := m.openTab(contexts[0], opts.StartURL)
	if err != nil {
		return nil, err
	}
	return &Session{Browser: browser, Context: contexts[0], Page: p, Attached: true}, nil
}

func (m *SessionManager) launchPersistent(opts SessionOptions) (*Session, error) {
	bctx, err := m.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: &opts.Headless,
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser with profile %s: %w", opts.UserDataDir, err)
	}

	p := m.findTab(bctx)
	if p == nil {
		if p, err = m.openTab(bctx, opts.StartURL); err != nil {
			bctx.Close()
			return nil, err
		}
	}
	return &Session{Context: bctx, Page: p}, nil
}

func (m *SessionManager) launch(opts SessionOptions) (*Session, error) {
	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	p, err := m.openTab(bctx, opts.StartURL)
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, err
	}
	return &Session{Browser: browser, Context: bctx, Page: p}, nil
}

// findTab returns the most recently opened tab showing a supported host.
func (m *SessionManager) findTab(bctx playwright.BrowserContext) playwright.Page {
	pages := bctx.Pages()
	for i := len(pages) - 1; i >= 0; i-- {
		if m.hosts.Match(pages[i].URL()) {
			return pages[i]
		}
	}
	return nil
}

func (m *SessionManager) openTab(bctx playwright.BrowserContext, startURL string) (playwright.Page, error) {
	p, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if _, err := p.Goto(startURL, playwright.PageGotoOptions{WaitUntil: waitUntil}); err != nil {
		p.Close()
		return nil, fmt.Errorf("navigation to %s failed: %w", startURL, err)
	}
	return p, nil
}

// Document returns the page.Document for the session's tab. It fails when the
// tab has navigated away from every supported host.
func (m *SessionManager) Document() (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, fmt.Errorf("no session open")
	}
	address := m.session.Page.URL()
	if !m.hosts.Match(address) {
		return nil, fmt.Errorf("open a chat conversation first (%v); current tab is %s", m.hosts.Patterns(), address)
	}
	return NewDocument(m.session.Page), nil
}

// Shutdown closes the session and stops Playwright. Browsers the user started
// are disconnected, not closed.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.session; s != nil {
		if !s.Attached {
			_ = s.Context.Close() // Ignore errors, continue cleanup
		}
		if s.Browser != nil {
			_ = s.Browser.Close()
		}
		m.session = nil
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
