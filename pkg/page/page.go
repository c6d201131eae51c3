// Package page defines the document abstraction the page-interaction engine runs on.
//
// Two backends implement it: page/live drives a real browser tab through
// Playwright, and page/htmldoc works on a parsed HTML snapshot. Extraction,
// the status indicator and menu automation only ever see these interfaces.
package page

// Querier runs CSS selectors against a subtree (or the whole document).
// QuerySelector returns a nil Element and nil error when nothing matches.
type Querier interface {
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
}

// Element is a handle to one DOM element.
//
// Navigation methods (Closest, Parent, siblings) return a nil Element and a
// nil error when there is no such element.
type Element interface {
	Querier

	// TagName returns the lower-cased tag name.
	TagName() (string, error)

	// Attribute returns the attribute value, or "" when it is absent.
	Attribute(name string) (string, error)

	// Closest returns the nearest inclusive ancestor matching selector.
	Closest(selector string) (Element, error)

	Parent() (Element, error)
	NextElementSibling() (Element, error)
	PreviousElementSibling() (Element, error)

	// TextContent returns the raw text of the subtree.
	TextContent() (string, error)

	// Clone returns a detached deep copy of the element.
	Clone() (Element, error)

	// Remove detaches the element from its parent.
	Remove() error

	// IsVisible reports whether the element is rendered with a non-zero size.
	IsVisible() (bool, error)

	// Click simulates a user activation of the element.
	Click() error
}

// Document is one page (tab) the engine operates on.
type Document interface {
	Querier

	// Location returns the page's current address.
	Location() string

	// Overlay returns the floating overlay with the given id, creating it
	// when it does not exist. Clicking the overlay removes it from the page.
	Overlay(id string) (Overlay, error)
}

// OverlayStyle is the colour pair applied to an overlay.
type OverlayStyle struct {
	Background string
	Foreground string
}

// Overlay is a floating element injected into the page.
type Overlay interface {
	// Update sets the colours and the visible text.
	Update(style OverlayStyle, text string) error

	// Attached reports whether the overlay is still part of the page.
	Attached() (bool, error)

	// Remove detaches the overlay. Removing a detached overlay is a no-op.
	Remove() error
}
