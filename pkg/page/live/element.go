package live

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/threadsweep/pkg/page"
)

// Element adapts a Playwright element handle to page.Element.
type Element struct {
	handle playwright.ElementHandle
}

var _ page.Element = (*Element)(nil)

func wrap(h playwright.ElementHandle) page.Element {
	if h == nil {
		return nil
	}
	return &Element{handle: h}
}

func wrapAll(handles []playwright.ElementHandle) []page.Element {
	out := make([]page.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &Element{handle: h})
	}
	return out
}

func (e *Element) QuerySelector(selector string) (page.Element, error) {
	h, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return wrap(h), nil
}

func (e *Element) QuerySelectorAll(selector string) ([]page.Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return wrapAll(handles), nil
}

func (e *Element) TagName() (string, error) {
	v, err := e.handle.Evaluate(`el => el.tagName.toLowerCase()`)
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return tag, nil
}

func (e *Element) Attribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *Element) Closest(selector string) (page.Element, error) {
	return e.relative(`(el, sel) => el.closest(sel)`, selector)
}

func (e *Element) Parent() (page.Element, error) {
	return e.relative(`el => el.parentElement`)
}

func (e *Element) NextElementSibling() (page.Element, error) {
	return e.relative(`el => el.nextElementSibling`)
}

func (e *Element) PreviousElementSibling() (page.Element, error) {
	return e.relative(`el => el.previousElementSibling`)
}

func (e *Element) TextContent() (string, error) {
	return e.handle.TextContent()
}

// Clone copies the subtree inside the page; the copy is never inserted.
func (e *Element) Clone() (page.Element, error) {
	return e.relative(`el => el.cloneNode(true)`)
}

func (e *Element) Remove() error {
	_, err := e.handle.Evaluate(`el => el.remove()`)
	return err
}

// IsVisible checks the rendered box, which is empty for display:none subtrees.
func (e *Element) IsVisible() (bool, error) {
	box, err := e.handle.BoundingBox()
	if err != nil {
		return false, err
	}
	return box != nil && box.Width > 0 && box.Height > 0, nil
}

// Click dispatches a DOM click, skipping Playwright's actionability checks.
func (e *Element) Click() error {
	_, err := e.handle.Evaluate(`el => el.click()`)
	return err
}

func (e *Element) relative(script string, arg ...interface{}) (page.Element, error) {
	h, err := e.handle.EvaluateHandle(script, arg...)
	if err != nil {
		return nil, err
	}
	el := h.AsElement()
	if el == nil {
		_ = h.Dispose()
		return nil, nil
	}
	return &Element{handle: el}, nil
}
