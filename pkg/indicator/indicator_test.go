package indicator

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/page"
	"github.com/entrhq/threadsweep/pkg/page/htmldoc"
)

// countingDoc records how often the page address is read.
type countingDoc struct {
	*htmldoc.Document
	locations atomic.Int64
}

func (d *countingDoc) Location() string {
	d.locations.Add(1)
	return d.Document.Location()
}

func newDoc(t *testing.T) *countingDoc {
	t.Helper()
	doc, err := htmldoc.ParseString(`<html><body><main>chat</main></body></html>`, "https://chatgpt.com/c/abc")
	require.NoError(t, err)
	return &countingDoc{Document: doc}
}

func badge(t *testing.T, doc *countingDoc) page.Element {
	t.Helper()
	el, err := doc.QuerySelector("#" + BadgeID)
	require.NoError(t, err)
	return el
}

// flakyDoc fails overlay updates once failUpdates is set.
type flakyDoc struct {
	*countingDoc
	mu          sync.Mutex
	failUpdates bool
	failOverlay bool
}

var errRender = errors.New("render failed")

func (d *flakyDoc) Overlay(id string) (page.Overlay, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOverlay {
		return nil, errRender
	}
	ov, err := d.countingDoc.Overlay(id)
	if err != nil {
		return nil, err
	}
	return &flakyOverlay{Overlay: ov, doc: d}, nil
}

func (d *flakyDoc) setFailures(updates, overlay bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failUpdates = updates
	d.failOverlay = overlay
}

type flakyOverlay struct {
	page.Overlay
	doc *flakyDoc
}

func (o *flakyOverlay) Update(style page.OverlayStyle, text string) error {
	o.doc.mu.Lock()
	fail := o.doc.failUpdates
	o.doc.mu.Unlock()
	if fail {
		return errRender
	}
	return o.Overlay.Update(style, text)
}

var keep = evaluation.Evaluation{Value: 8, Confidence: 4, Recommendation: evaluation.Keep}

func TestShow_RendersBadge(t *testing.T) {
	tests := []struct {
		name       string
		rec        evaluation.Recommendation
		background string
		text       string
	}{
		{name: "keep", rec: evaluation.Keep, background: "#0d6b0d", text: "3/10 · Keep"},
		{name: "archive", rec: evaluation.Archive, background: "#b8860b", text: "3/10 · Archive"},
		{name: "delete", rec: evaluation.Delete, background: "#b91c1c", text: "3/10 · Delete"},
		{name: "unknown uses keep colours", rec: "Maybe", background: "#0d6b0d", text: "3/10 · Maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t)
			m := NewManager(doc, WithClock(clockwork.NewFakeClock()))
			defer m.Dismiss()

			require.NoError(t, m.Show(evaluation.Evaluation{Value: 3, Recommendation: tt.rec}, ""))

			el := badge(t, doc)
			require.NotNil(t, el)
			text, _ := el.TextContent()
			assert.Equal(t, tt.text, text)
			style, _ := el.Attribute("style")
			assert.Contains(t, style, "background:"+tt.background)
			assert.Equal(t, page.Identity("/c/abc"), m.Identity())
		})
	}
}

func TestShow_SameIdentityReusesBadge(t *testing.T) {
	doc := newDoc(t)
	m := NewManager(doc, WithClock(clockwork.NewFakeClock()))
	defer m.Dismiss()

	require.NoError(t, m.Show(keep, "/c/abc"))
	first := badge(t, doc)

	require.NoError(t, m.Show(evaluation.Evaluation{Value: 2, Recommendation: evaluation.Delete}, "/c/abc"))

	all, err := doc.QuerySelectorAll("#" + BadgeID)
	require.NoError(t, err)
	require.Len(t, all, 1)

	visible, err := first.IsVisible()
	require.NoError(t, err)
	assert.True(t, visible, "the existing overlay should be reused")
	text, _ := first.TextContent()
	assert.Equal(t, "2/10 · Delete", text)
}

func TestShow_NewIdentityRecreatesBadge(t *testing.T) {
	doc := newDoc(t)
	m := NewManager(doc, WithClock(clockwork.NewFakeClock()))
	defer m.Dismiss()

	require.NoError(t, m.Show(keep, "/c/one"))
	first := badge(t, doc)

	require.NoError(t, m.Show(evaluation.Evaluation{Value: 5, Recommendation: evaluation.Archive}, "/c/two"))

	visible, err := first.IsVisible()
	require.NoError(t, err)
	assert.False(t, visible, "old badge should be detached")

	second := badge(t, doc)
	require.NotNil(t, second)
	text, _ := second.TextContent()
	assert.Equal(t, "5/10 · Archive", text)
	assert.Equal(t, page.Identity("/c/two"), m.Identity())
}

func TestWatcher_DismissesOnNavigation(t *testing.T) {
	doc := newDoc(t)
	clock := clockwork.NewFakeClock()
	m := NewManager(doc, WithClock(clock))

	require.NoError(t, m.Show(keep, ""))
	clock.Advance(DefaultCheckInterval)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, m.Active(), "same page keeps the badge")

	doc.Navigate("https://chatgpt.com/c/other")
	require.Eventually(t, func() bool {
		clock.Advance(DefaultCheckInterval)
		return !m.Active()
	}, time.Second, 10*time.Millisecond)

	assert.Nil(t, badge(t, doc))
}

func TestWatcher_StopsWhenBadgeClicked(t *testing.T) {
	doc := newDoc(t)
	clock := clockwork.NewFakeClock()
	m := NewManager(doc, WithClock(clock))

	require.NoError(t, m.Show(keep, ""))
	require.NoError(t, badge(t, doc).Click())
	assert.Nil(t, badge(t, doc))

	require.Eventually(t, func() bool {
		clock.Advance(DefaultCheckInterval)
		return !m.Active()
	}, time.Second, 10*time.Millisecond)
}

func TestDismiss_NoCheckAfterwards(t *testing.T) {
	doc := newDoc(t)
	clock := clockwork.NewFakeClock()
	m := NewManager(doc, WithClock(clock))

	require.NoError(t, m.Show(keep, "/c/abc"))
	m.Dismiss()
	assert.False(t, m.Active())
	assert.Nil(t, badge(t, doc))

	before := doc.locations.Load()
	for i := 0; i < 5; i++ {
		clock.Advance(DefaultCheckInterval)
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, doc.locations.Load())
}

func TestDismiss_Idempotent(t *testing.T) {
	doc := newDoc(t)
	m := NewManager(doc, WithClock(clockwork.NewFakeClock()))

	m.Dismiss()
	require.NoError(t, m.Show(keep, ""))
	m.Dismiss()
	m.Dismiss()
	assert.False(t, m.Active())
	assert.Equal(t, page.Identity(""), m.Identity())
}

func TestShow_FailureLeavesNoBadge(t *testing.T) {
	tests := []struct {
		name        string
		identity    page.Identity
		failUpdates bool
		failOverlay bool
	}{
		{name: "update fails for the same conversation", failUpdates: true},
		{name: "update fails for another conversation", identity: "/c/two", failUpdates: true},
		{name: "overlay cannot be created", failOverlay: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &flakyDoc{countingDoc: newDoc(t)}
			clock := clockwork.NewFakeClock()
			m := NewManager(doc, WithClock(clock))
			defer m.Dismiss()

			require.NoError(t, m.Show(keep, ""))
			require.NotNil(t, badge(t, doc.countingDoc))

			doc.setFailures(tt.failUpdates, tt.failOverlay)
			assert.ErrorIs(t, m.Show(evaluation.Evaluation{Value: 2, Recommendation: evaluation.Delete}, tt.identity), errRender)

			assert.False(t, m.Active())
			assert.Equal(t, page.Identity(""), m.Identity())
			assert.Nil(t, badge(t, doc.countingDoc), "no stale badge may stay on the page")

			doc.Navigate("https://chatgpt.com/c/other")
			for i := 0; i < 5; i++ {
				clock.Advance(DefaultCheckInterval)
			}
			time.Sleep(20 * time.Millisecond)
			assert.Nil(t, badge(t, doc.countingDoc))
		})
	}
}
