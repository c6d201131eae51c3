package menu

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/threadsweep/pkg/page"
	"github.com/entrhq/threadsweep/pkg/page/htmldoc"
)

const sidebarPage = `<html><body>
<nav aria-label="Chat history"><ol>
  <li><a href="/c/other">Other chat</a><button data-testid="opts-other">…</button></li>
  <li>
    <a href="/c/abc/">Launch plan</a>
    <button data-testid="opts-hidden" style="display:none">…</button>
    <button data-testid="opts-abc">…</button>
  </li>
</ol></nav>
<main>conversation</main>
</body></html>`

const conversationMenu = `<div role="menu">
  <div role="menuitem" data-testid="share">Share</div>
  <div role="menuitem" data-testid="archive">Archive chat</div>
  <div role="menuitem" data-testid="delete">Delete</div>
</div>`

func newPage(t *testing.T, src, location string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(src, location)
	require.NoError(t, err)
	return doc
}

// withMenu makes clicking trigger render fragment into the body.
func withMenu(t *testing.T, doc *htmldoc.Document, trigger, fragment string) {
	t.Helper()
	require.NoError(t, doc.OnClick(trigger, func(d *htmldoc.Document, _ page.Element) {
		_ = d.AppendHTML("body", fragment)
	}))
}

func clicks(t *testing.T, doc *htmldoc.Document, selector string) int {
	t.Helper()
	n, err := doc.ClickCount(selector)
	require.NoError(t, err)
	return n
}

func perform(ctx context.Context, c *Controller, label string) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		done <- c.PerformMenuAction(ctx, MenuActionRequest{TargetLabel: label})
	}()
	return done
}

// drive advances the fake clock until the action reports its result.
func drive(t *testing.T, clock *clockwork.FakeClock, done <-chan bool) bool {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ok := <-done:
			return ok
		case <-deadline:
			t.Fatal("menu action did not finish")
			return false
		default:
			clock.Advance(50 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestPerformMenuAction_ArchiveClickedOnce(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	withMenu(t, doc, `[data-testid="opts-abc"]`, conversationMenu)
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))

	ok := drive(t, clock, perform(context.Background(), c, "archive"))

	assert.True(t, ok)
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="opts-abc"]`))
	assert.Equal(t, 0, clicks(t, doc, `[data-testid="opts-hidden"]`))
	assert.Equal(t, 0, clicks(t, doc, `[data-testid="opts-other"]`))
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="archive"]`))
	assert.Equal(t, 0, clicks(t, doc, `[data-testid="delete"]`))
}

func TestPerformMenuAction_ItemAbsent(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	withMenu(t, doc, `[data-testid="opts-abc"]`, conversationMenu)
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))
	start := clock.Now()

	ok := drive(t, clock, perform(context.Background(), c, "rename"))

	assert.False(t, ok)
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="opts-abc"]`))
	assert.GreaterOrEqual(t, clock.Since(start), 350*time.Millisecond+4*250*time.Millisecond)
}

func TestPerformMenuAction_NoTrigger(t *testing.T) {
	doc := newPage(t, `<html><body>
		<button aria-label="Open sidebar" aria-expanded="false" data-testid="toggle">≡</button>
		<main>no sidebar</main></body></html>`, "https://chatgpt.com/c/abc")
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))
	start := clock.Now()

	ok := drive(t, clock, perform(context.Background(), c, "archive"))

	assert.False(t, ok)
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="toggle"]`))
	assert.GreaterOrEqual(t, clock.Since(start), DefaultTimings.LocateRetry)
}

func TestPerformMenuAction_ExpandsCollapsedSidebar(t *testing.T) {
	doc := newPage(t, `<html><body>
		<button aria-label="Open sidebar" aria-expanded="false" data-testid="toggle">≡</button>
		<nav></nav></body></html>`, "https://chatgpt.com/c/abc")
	require.NoError(t, doc.OnClick(`[data-testid="toggle"]`, func(d *htmldoc.Document, _ page.Element) {
		_ = d.AppendHTML("nav", `<ol><li><a href="/c/abc">Launch plan</a><button data-testid="opts-abc">…</button></li></ol>`)
	}))
	withMenu(t, doc, `[data-testid="opts-abc"]`, conversationMenu)
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))

	ok := drive(t, clock, perform(context.Background(), c, "Delete"))

	assert.True(t, ok)
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="toggle"]`))
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="delete"]`))
}

func TestPerformMenuAction_ActiveLinkFallback(t *testing.T) {
	doc := newPage(t, `<html><body><nav><ol>
		<li><a href="/c/abc" aria-current="page">Launch plan</a><span><button data-testid="opts-active">…</button></span></li>
		</ol></nav></body></html>`, "https://chatgpt.com/c/renamed")
	withMenu(t, doc, `[data-testid="opts-active"]`, conversationMenu)
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))

	ok := drive(t, clock, perform(context.Background(), c, "archive"))

	assert.True(t, ok)
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="archive"]`))
}

func TestPerformMenuAction_VisibleClickableFallback(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	withMenu(t, doc, `[data-testid="opts-abc"]`, `<div role="dialog">
		<button data-testid="hidden-delete" style="display:none">Delete</button>
		<div role="option" data-testid="option-delete">Delete chat</div>
	</div>`)
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))

	ok := drive(t, clock, perform(context.Background(), c, "delete"))

	assert.True(t, ok)
	assert.Equal(t, 0, clicks(t, doc, `[data-testid="hidden-delete"]`))
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="option-delete"]`))
}

func TestPerformMenuAction_RejectsOverlappingRun(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	withMenu(t, doc, `[data-testid="opts-abc"]`, conversationMenu)
	clock := clockwork.NewFakeClock()
	c := NewController(doc, WithClock(clock))

	first := perform(context.Background(), c, "archive")
	require.Eventually(t, func() bool {
		n, _ := doc.ClickCount(`[data-testid="opts-abc"]`)
		return n == 1
	}, time.Second, time.Millisecond)

	assert.False(t, c.PerformMenuAction(context.Background(), MenuActionRequest{TargetLabel: "archive"}))
	assert.True(t, drive(t, clock, first))
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="archive"]`))
}

func TestPerformMenuAction_CancelledContext(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	withMenu(t, doc, `[data-testid="opts-abc"]`, conversationMenu)
	c := NewController(doc, WithClock(clockwork.NewFakeClock()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, c.PerformMenuAction(ctx, MenuActionRequest{TargetLabel: "archive"}))
	assert.Equal(t, 0, clicks(t, doc, `[data-testid="opts-abc"]`))
}

func TestPerformMenuAction_EmptyLabel(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	c := NewController(doc, WithClock(clockwork.NewFakeClock()))
	assert.False(t, c.PerformMenuAction(context.Background(), MenuActionRequest{}))
}

func TestStep_LocateTransitions(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
		c := NewController(doc)
		run := NewRun(MenuActionRequest{TargetLabel: "archive"}, "/c/abc")

		assert.Equal(t, time.Duration(0), c.Step(run))
		assert.Equal(t, TriggerFound, run.State)
		require.NotNil(t, run.Trigger)
		id, _ := run.Trigger.Attribute("data-testid")
		assert.Equal(t, "opts-abc", id)
	})

	t.Run("retry once then exhausted", func(t *testing.T) {
		doc := newPage(t, sidebarPage, "https://chatgpt.com/c/missing")
		c := NewController(doc)
		run := NewRun(MenuActionRequest{TargetLabel: "archive"}, "/c/missing")

		assert.Equal(t, DefaultTimings.LocateRetry, c.Step(run))
		assert.Equal(t, LocatingTrigger, run.State)
		assert.True(t, run.SidebarExpanded)

		assert.Equal(t, time.Duration(0), c.Step(run))
		assert.Equal(t, Exhausted, run.State)
	})
}

func TestStep_OpenAndItemRetries(t *testing.T) {
	doc := newPage(t, sidebarPage, "https://chatgpt.com/c/abc")
	c := NewController(doc)
	run := NewRun(MenuActionRequest{TargetLabel: "archive"}, "/c/abc")

	c.Step(run)
	assert.Equal(t, DefaultTimings.Settle, c.Step(run))
	assert.Equal(t, MenuOpened, run.State)
	assert.Equal(t, 1, clicks(t, doc, `[data-testid="opts-abc"]`))

	for i := 0; i < DefaultTimings.ItemRetries; i++ {
		assert.Equal(t, DefaultTimings.ItemRetry, c.Step(run), "lookup %d", i+1)
		assert.Equal(t, MenuOpened, run.State)
	}
	assert.Equal(t, time.Duration(0), c.Step(run))
	assert.Equal(t, Exhausted, run.State)
	assert.Equal(t, DefaultTimings.ItemRetries, run.ItemAttempts)

	assert.Equal(t, time.Duration(0), c.Step(run))
	assert.Equal(t, Exhausted, run.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "LOCATING_TRIGGER", LocatingTrigger.String())
	assert.Equal(t, "EXHAUSTED", Exhausted.String())
	assert.True(t, ItemLocated.Terminal())
	assert.False(t, MenuOpened.Terminal())
}
