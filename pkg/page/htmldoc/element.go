package htmldoc

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/threadsweep/pkg/page"
)

// Element wraps one node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ page.Element = (*Element)(nil)

// Node exposes the underlying node for callers that need the raw tree.
func (e *Element) Node() *html.Node {
	return e.node
}

// QuerySelector returns the first descendant matching selector.
func (e *Element) QuerySelector(selector string) (page.Element, error) {
	return e.doc.query(e.node, selector)
}

// QuerySelectorAll returns every descendant matching selector.
func (e *Element) QuerySelectorAll(selector string) ([]page.Element, error) {
	return e.doc.queryAll(e.node, selector)
}

func (e *Element) TagName() (string, error) {
	return strings.ToLower(e.node.Data), nil
}

func (e *Element) Attribute(name string) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return attr(e.node, name), nil
}

// Closest walks from the element up through its ancestors.
func (e *Element) Closest(selector string) (page.Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && m.Match(n) {
			return e.wrap(n), nil
		}
	}
	return nil, nil
}

func (e *Element) Parent() (page.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if p := e.node.Parent; p != nil && p.Type == html.ElementNode {
		return e.wrap(p), nil
	}
	return nil, nil
}

func (e *Element) NextElementSibling() (page.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.node.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return e.wrap(n), nil
		}
	}
	return nil, nil
}

func (e *Element) PreviousElementSibling() (page.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.node.PrevSibling; n != nil; n = n.PrevSibling {
		if n.Type == html.ElementNode {
			return e.wrap(n), nil
		}
	}
	return nil, nil
}

// TextContent concatenates every text node of the subtree, like the DOM property.
func (e *Element) TextContent() (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var b strings.Builder
	collectText(e.node, &b)
	return b.String(), nil
}

func (e *Element) Clone() (page.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.wrap(cloneNode(e.node)), nil
}

func (e *Element) Remove() error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
	return nil
}

// IsVisible approximates layout: the element must be attached and neither it
// nor an ancestor may be hidden by attribute or inline style.
func (e *Element) IsVisible() (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !attached(e.doc.root, e.node) {
		return false, nil
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenNode(n) {
			return false, nil
		}
	}
	return true, nil
}

func (e *Element) Click() error {
	e.doc.click(e.node)
	return nil
}

func (e *Element) wrap(n *html.Node) *Element {
	return &Element{doc: e.doc, node: n}
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}

func attached(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

func hiddenNode(n *html.Node) bool {
	if hasAttr(n, "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(attr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
