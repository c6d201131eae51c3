package live

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/threadsweep/pkg/page"
)

// overlayScript finds or creates the overlay and wires click-to-dismiss once.
const overlayScript = `(id) => {
  let el = document.getElementById(id);
  if (!el) {
    el = document.createElement('div');
    el.id = id;
    el.style.cssText = [
      'position:fixed;top:16px;right:16px;z-index:2147483647;',
      'font-family:system-ui,-apple-system,sans-serif;font-size:13px;font-weight:600;',
      'padding:8px 12px;border-radius:8px;box-shadow:0 2px 8px rgba(0,0,0,0.15);',
      'display:flex;align-items:center;gap:8px;cursor:pointer;user-select:none;',
      'transition:opacity 0.2s;'
    ].join('');
    el.title = 'Thread Cleanup badge – click to dismiss';
    el.addEventListener('click', () => el.remove());
    document.body.appendChild(el);
  }
  return el;
}`

// Document adapts a Playwright page to page.Document.
type Document struct {
	page playwright.Page
}

var _ page.Document = (*Document)(nil)

// NewDocument wraps p.
func NewDocument(p playwright.Page) *Document {
	return &Document{page: p}
}

func (d *Document) Location() string {
	return d.page.URL()
}

func (d *Document) QuerySelector(selector string) (page.Element, error) {
	h, err := d.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return wrap(h), nil
}

func (d *Document) QuerySelectorAll(selector string) ([]page.Element, error) {
	handles, err := d.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return wrapAll(handles), nil
}

func (d *Document) Overlay(id string) (page.Overlay, error) {
	h, err := d.page.EvaluateHandle(overlayScript, id)
	if err != nil {
		return nil, fmt.Errorf("failed to inject overlay: %w", err)
	}
	el := h.AsElement()
	if el == nil {
		return nil, fmt.Errorf("overlay script returned no element")
	}
	return &overlay{handle: el}, nil
}

type overlay struct {
	handle playwright.ElementHandle
}

func (o *overlay) Update(style page.OverlayStyle, text string) error {
	_, err := o.handle.Evaluate(`(el, a) => {
  el.style.background = a.bg;
  el.style.color = a.fg;
  el.textContent = a.text;
}`, map[string]interface{}{
		"bg":   style.Background,
		"fg":   style.Foreground,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("failed to update overlay: %w", err)
	}
	return nil
}

func (o *overlay) Attached() (bool, error) {
	v, err := o.handle.Evaluate(`el => el.isConnected`)
	if err != nil {
		return false, err
	}
	connected, _ := v.(bool)
	return connected, nil
}

func (o *overlay) Remove() error {
	if _, err := o.handle.Evaluate(`el => el.remove()`); err != nil {
		return fmt.Errorf("failed to remove overlay: %w", err)
	}
	return nil
}
