// Package htmldoc implements page.Document over a parsed HTML snapshot.
//
// It is used for offline extraction from saved pages and as the deterministic
// backend in tests. Clicks run registered handlers, which lets callers script
// how a page reacts (for example, rendering a menu after its trigger is clicked).
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/entrhq/threadsweep/pkg/page"
)

// ClickFunc reacts to a click on an element matching a registered selector.
type ClickFunc func(doc *Document, target page.Element)

type clickHandler struct {
	matcher cascadia.Matcher
	fn      ClickFunc
}

// Document is a mutable in-memory DOM. All methods are safe for concurrent use.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	location string
	handlers []clickHandler
	clicks   map[*html.Node]int
	overlays map[*html.Node]bool
}

var _ page.Document = (*Document)(nil)

// Parse reads an HTML page served at location.
func Parse(r io.Reader, location string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		root:     root,
		location: location,
		clicks:   make(map[*html.Node]int),
		overlays: make(map[*html.Node]bool),
	}, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(src, location string) (*Document, error) {
	return Parse(strings.NewReader(src), location)
}

// Open parses the HTML file at path.
func Open(path, location string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, location)
}

// Location returns the current page address.
func (d *Document) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

// Navigate changes the address without touching the tree, the way a
// single-page app swaps conversations.
func (d *Document) Navigate(location string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = location
}

// QuerySelector returns the first element matching selector.
func (d *Document) QuerySelector(selector string) (page.Element, error) {
	return d.query(d.root, selector)
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) ([]page.Element, error) {
	return d.queryAll(d.root, selector)
}

// OnClick registers fn to run whenever an element matching selector is clicked.
func (d *Document) OnClick(selector string, fn ClickFunc) error {
	m, err := compile(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, clickHandler{matcher: m, fn: fn})
	return nil
}

// ClickCount returns how many times elements matching selector were clicked.
func (d *Document) ClickCount(selector string) (int, error) {
	m, err := compile(selector)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for n, count := range d.clicks {
		if m.Match(n) {
			total += count
		}
	}
	return total, nil
}

// AppendHTML parses fragment and appends it to the first element matching parentSelector.
func (d *Document) AppendHTML(parentSelector, fragment string) error {
	m, err := compile(parentSelector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	parent := cascadia.Query(d.root, m)
	if parent == nil {
		return fmt.Errorf("no element matches %q", parentSelector)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// RemoveAll detaches every element matching selector.
func (d *Document) RemoveAll(selector string) error {
	m, err := compile(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range cascadia.QueryAll(d.root, m) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return nil
}

// HTML renders the current tree.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// Overlay returns the overlay with the given id, appending it to <body> when missing.
func (d *Document) Overlay(id string) (page.Overlay, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n := findByID(d.root, id); n != nil {
		d.overlays[n] = true
		return &overlay{doc: d, node: n}, nil
	}

	body := findAtom(d.root, atom.Body)
	if body == nil {
		return nil, fmt.Errorf("document has no body")
	}
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "title", Val: "Thread Cleanup badge – click to dismiss"},
		},
	}
	body.AppendChild(n)
	d.overlays[n] = true
	return &overlay{doc: d, node: n}, nil
}

func (d *Document) query(from *html.Node, selector string) (page.Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := cascadia.Query(from, m); n != nil {
		return &Element{doc: d, node: n}, nil
	}
	return nil, nil
}

func (d *Document) queryAll(from *html.Node, selector string) ([]page.Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes := cascadia.QueryAll(from, m)
	out := make([]page.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{doc: d, node: n})
	}
	return out, nil
}

// click records the activation and runs matching handlers outside the lock.
func (d *Document) click(n *html.Node) {
	d.mu.Lock()
	d.clicks[n]++
	if d.overlays[n] {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		delete(d.overlays, n)
	}
	var fns []ClickFunc
	for _, h := range d.handlers {
		if h.matcher.Match(n) {
			fns = append(fns, h.fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(d, &Element{doc: d, node: n})
	}
}

func compile(selector string) (cascadia.Matcher, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return group, nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
