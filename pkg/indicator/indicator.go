// Package indicator shows a floating evaluation badge on the page and removes
// it when the user leaves the conversation it belongs to.
package indicator

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/page"
)

const (
	// BadgeID is the id of the overlay element. There is at most one per page.
	BadgeID = "threadsweep-badge"

	// DefaultCheckInterval is how often the bound identity is compared with the page.
	DefaultCheckInterval = time.Second
)

// Manager owns the page's badge and its navigation watcher.
type Manager struct {
	doc      page.Document
	clock    clockwork.Clock
	interval time.Duration
	logger   *logging.Logger

	mu         sync.Mutex
	overlay    page.Overlay
	identity   page.Identity
	stop       chan struct{}
	generation uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the real clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithInterval sets the navigation check period.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager for doc. No badge is shown until Show is called.
func NewManager(doc page.Document, opts ...Option) *Manager {
	m := &Manager{
		doc:      doc,
		clock:    clockwork.NewRealClock(),
		interval: DefaultCheckInterval,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show renders eval in the badge bound to identity. An empty identity means
// the page's current one. A badge bound to another identity is removed first;
// a badge for the same identity is updated in place.
func (m *Manager) Show(eval evaluation.Evaluation, identity page.Identity) error {
	if identity == "" {
		identity = page.CurrentIdentity(m.doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.overlay != nil && m.identity != identity {
		m.logger.Debugf("identity changed from %s to %s, replacing badge", m.identity, identity)
		m.teardownLocked(true)
	}
	m.stopWatchLocked()

	// Any failure from here on leaves no badge behind, since none is watched.
	ov, err := m.doc.Overlay(BadgeID)
	if err != nil {
		m.logger.Warnf("failed to create badge: %v", err)
		m.teardownLocked(true)
		return err
	}
	palette := eval.Recommendation.Palette()
	style := page.OverlayStyle{Background: palette.Background, Foreground: palette.Foreground}
	if err := ov.Update(style, eval.BadgeText()); err != nil {
		m.logger.Warnf("failed to update badge: %v", err)
		m.teardownLocked(true)
		if rmErr := ov.Remove(); rmErr != nil {
			m.logger.Warnf("failed to remove badge: %v", rmErr)
		}
		return err
	}

	m.overlay = ov
	m.identity = identity
	m.startWatchLocked()
	m.logger.Infof("badge shown for %s: %s", identity, eval.BadgeText())
	return nil
}

// Dismiss removes the badge and stops the watcher. It is safe to call at any time.
func (m *Manager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(true)
}

// Active reports whether a badge is currently owned and watched.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlay != nil
}

// Identity returns the identity the current badge is bound to, or "".
func (m *Manager) Identity() page.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlay == nil {
		return ""
	}
	return m.identity
}

func (m *Manager) startWatchLocked() {
	m.generation++
	gen := m.generation
	stop := make(chan struct{})
	m.stop = stop

	ticker := m.clock.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				if !m.check(gen) {
					return
				}
			}
		}
	}()
}

func (m *Manager) stopWatchLocked() {
	m.generation++
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *Manager) teardownLocked(remove bool) {
	m.stopWatchLocked()
	if m.overlay == nil {
		return
	}
	if remove {
		if err := m.overlay.Remove(); err != nil {
			m.logger.Warnf("failed to remove badge: %v", err)
		}
	}
	m.overlay = nil
	m.identity = ""
}

// check runs one watcher tick and reports whether watching should continue.
func (m *Manager) check(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.overlay == nil {
		return false
	}

	attached, err := m.overlay.Attached()
	if err != nil || !attached {
		m.logger.Debugf("badge detached, stopping watcher")
		m.teardownLocked(false)
		return false
	}

	current := page.CurrentIdentity(m.doc)
	if current != m.identity {
		m.logger.Infof("navigated from %s to %s, dismissing badge", m.identity, current)
		m.teardownLocked(true)
		return false
	}
	return true
}
