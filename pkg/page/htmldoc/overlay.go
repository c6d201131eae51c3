package htmldoc

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/entrhq/threadsweep/pkg/page"
)

const overlayBaseStyle = "position:fixed;top:16px;right:16px;z-index:2147483647;" +
	"font-family:system-ui,-apple-system,sans-serif;font-size:13px;font-weight:600;" +
	"padding:8px 12px;border-radius:8px;cursor:pointer;user-select:none;"

type overlay struct {
	doc  *Document
	node *html.Node
}

func (o *overlay) Update(style page.OverlayStyle, text string) error {
	o.doc.mu.Lock()
	defer o.doc.mu.Unlock()

	setAttr(o.node, "style", fmt.Sprintf("%sbackground:%s;color:%s;", overlayBaseStyle, style.Background, style.Foreground))
	for c := o.node.FirstChild; c != nil; c = o.node.FirstChild {
		o.node.RemoveChild(c)
	}
	o.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

func (o *overlay) Attached() (bool, error) {
	o.doc.mu.Lock()
	defer o.doc.mu.Unlock()
	return attached(o.doc.root, o.node), nil
}

func (o *overlay) Remove() error {
	o.doc.mu.Lock()
	defer o.doc.mu.Unlock()
	if o.node.Parent != nil {
		o.node.Parent.RemoveChild(o.node)
	}
	delete(o.doc.overlays, o.node)
	return nil
}
