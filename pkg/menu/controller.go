// Package menu drives a host page's native conversation menu: it finds the
// options button of the current conversation, opens the menu and clicks the
// item whose label matches, retrying within fixed bounds.
package menu

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/page"
)

// State is a step of a menu action.
type State int

const (
	LocatingTrigger State = iota
	TriggerFound
	MenuOpened
	ItemLocated
	Exhausted
)

func (s State) String() string {
	switch s {
	case LocatingTrigger:
		return "LOCATING_TRIGGER"
	case TriggerFound:
		return "TRIGGER_FOUND"
	case MenuOpened:
		return "MENU_OPENED"
	case ItemLocated:
		return "ITEM_LOCATED"
	case Exhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further step follows s.
func (s State) Terminal() bool {
	return s == ItemLocated || s == Exhausted
}

// MenuActionRequest names the item to click. TargetLabel is matched as a
// case-insensitive substring of the item's text.
type MenuActionRequest struct {
	TargetLabel string
}

// Run is the progress of one menu action.
type Run struct {
	Request  MenuActionRequest
	Identity page.Identity
	State    State

	Trigger         page.Element
	SidebarExpanded bool
	ItemAttempts    int
}

// NewRun starts a run for req against the conversation identity.
func NewRun(req MenuActionRequest, identity page.Identity) *Run {
	return &Run{Request: req, Identity: identity, State: LocatingTrigger}
}

// Controller performs menu actions on one page. At most one action runs at a time.
type Controller struct {
	doc       page.Document
	clock     clockwork.Clock
	logger    *logging.Logger
	selectors Selectors
	timings   Timings

	running sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSelectors overrides the page selectors.
func WithSelectors(s Selectors) Option {
	return func(c *Controller) {
		c.selectors = s
	}
}

// WithTimings overrides the waits between states.
func WithTimings(t Timings) Option {
	return func(c *Controller) {
		c.timings = t
	}
}

// NewController creates a controller for doc.
func NewController(doc page.Document, opts ...Option) *Controller {
	c := &Controller{
		doc:       doc,
		clock:     clockwork.NewRealClock(),
		logger:    logging.Nop(),
		selectors: DefaultSelectors,
		timings:   DefaultTimings,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PerformMenuAction opens the current conversation's menu and clicks the
// item matching req.TargetLabel. It reports false when the item could not be
// clicked for any reason, including a call already in progress and ctx
// being cancelled.
func (c *Controller) PerformMenuAction(ctx context.Context, req MenuActionRequest) (ok bool) {
	if req.TargetLabel == "" {
		return false
	}
	if !c.running.TryLock() {
		c.logger.Warnf("menu action %q rejected: another action is running", req.TargetLabel)
		return false
	}
	defer c.running.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("menu action %q panicked: %v", req.TargetLabel, r)
			ok = false
		}
	}()

	run := NewRun(req, page.CurrentIdentity(c.doc))
	c.logger.Infof("menu action %q started for %s", req.TargetLabel, run.Identity)

	for !run.State.Terminal() {
		delay := c.Step(run)
		if run.State.Terminal() {
			break
		}
		if err := c.wait(ctx, delay); err != nil {
			c.logger.Warnf("menu action %q cancelled in %s: %v", req.TargetLabel, run.State, err)
			run.State = Exhausted
		}
	}

	c.logger.Infof("menu action %q finished in %s", req.TargetLabel, run.State)
	return run.State == ItemLocated
}

// Step performs the work of run's current state, moves it to the next state
// and returns how long to wait before the next step.
func (c *Controller) Step(run *Run) time.Duration {
	switch run.State {
	case LocatingTrigger:
		return c.stepLocate(run)
	case TriggerFound:
		return c.stepOpen(run)
	case MenuOpened:
		return c.stepItem(run)
	default:
		return 0
	}
}

func (c *Controller) stepLocate(run *Run) time.Duration {
	btn, err := c.locateTrigger(run.Identity)
	if err != nil {
		c.logger.Warnf("locating menu trigger failed: %v", err)
	}
	if btn != nil {
		run.Trigger = btn
		run.State = TriggerFound
		return 0
	}
	if run.SidebarExpanded {
		c.logger.Infof("no menu trigger for %s after expanding sidebar", run.Identity)
		run.State = Exhausted
		return 0
	}
	run.SidebarExpanded = true
	if c.expandSidebar() {
		c.logger.Debugf("expanded sidebar, retrying")
	}
	return c.timings.LocateRetry
}

func (c *Controller) stepOpen(run *Run) time.Duration {
	if err := run.Trigger.Click(); err != nil {
		c.logger.Warnf("clicking menu trigger failed: %v", err)
		run.State = Exhausted
		return 0
	}
	run.State = MenuOpened
	return c.timings.Settle
}

func (c *Controller) stepItem(run *Run) time.Duration {
	item, err := c.locateItem(run.Request.TargetLabel)
	if err != nil {
		c.logger.Warnf("locating menu item %q failed: %v", run.Request.TargetLabel, err)
	}
	if item != nil {
		err := item.Click()
		if err == nil {
			run.State = ItemLocated
			return 0
		}
		c.logger.Warnf("clicking menu item %q failed: %v", run.Request.TargetLabel, err)
	}
	if run.ItemAttempts >= c.timings.ItemRetries {
		run.State = Exhausted
		return 0
	}
	run.ItemAttempts++
	return c.timings.ItemRetry
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}
