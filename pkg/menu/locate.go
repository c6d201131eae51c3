package menu

import (
	"strings"

	"github.com/entrhq/threadsweep/pkg/page"
)

// locateTrigger finds the options button of the sidebar row for identity.
func (c *Controller) locateTrigger(identity page.Identity) (page.Element, error) {
	want := page.NormalizePath(string(identity))

	for _, sel := range c.selectors.SidebarRoots {
		root, err := c.doc.QuerySelector(sel)
		if err != nil {
			return nil, err
		}
		if root == nil {
			continue
		}
		links, err := root.QuerySelectorAll(c.selectors.ConversationLinks)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			href, err := link.Attribute("href")
			if err != nil || page.NormalizePath(href) != want {
				continue
			}
			btn, err := c.rowButton(link)
			if err != nil {
				return nil, err
			}
			if btn != nil {
				return btn, nil
			}
		}
	}

	return c.activeRowButton()
}

// rowButton returns the first visible button of the link's row, then a button
// adjacent to the link, then any button under the link's parent.
func (c *Controller) rowButton(link page.Element) (page.Element, error) {
	container, err := closestOf(link, c.selectors.RowContainers)
	if err != nil {
		return nil, err
	}
	if container == nil {
		if container, err = link.Parent(); err != nil || container == nil {
			return nil, err
		}
	}

	buttons, err := container.QuerySelectorAll("button")
	if err != nil {
		return nil, err
	}
	for _, b := range buttons {
		if visible, err := b.IsVisible(); err == nil && visible {
			return b, nil
		}
	}

	if next, err := link.NextElementSibling(); err == nil && isButton(next) {
		return next, nil
	}
	if prev, err := link.PreviousElementSibling(); err == nil && isButton(prev) {
		return prev, nil
	}

	parent, err := link.Parent()
	if err != nil || parent == nil {
		return nil, err
	}
	return parent.QuerySelector("button")
}

func (c *Controller) activeRowButton() (page.Element, error) {
	link, err := c.doc.QuerySelector(c.selectors.ActiveLink)
	if err != nil || link == nil {
		return nil, err
	}
	container, err := closestOf(link, c.selectors.ActiveRowContainers)
	if err != nil {
		return nil, err
	}
	if container == nil {
		if container, err = link.Parent(); err != nil || container == nil {
			return nil, err
		}
	}
	return container.QuerySelector("button")
}

// expandSidebar clicks the first toggle that reports itself collapsed.
func (c *Controller) expandSidebar() bool {
	for _, sel := range c.selectors.SidebarToggles {
		btn, err := c.doc.QuerySelector(sel)
		if err != nil || btn == nil {
			continue
		}
		expanded, err := btn.Attribute("aria-expanded")
		if err != nil {
			continue
		}
		if expanded == "" || expanded == "false" {
			if err := btn.Click(); err != nil {
				c.logger.Warnf("sidebar toggle %s click failed: %v", sel, err)
				return false
			}
			return true
		}
	}
	return false
}

// locateItem finds a menu item whose text contains label, falling back to
// any visible clickable element on the page.
func (c *Controller) locateItem(label string) (page.Element, error) {
	label = strings.ToLower(label)

	items, err := c.doc.QuerySelectorAll(c.selectors.MenuItems)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if containsLabel(it, label) {
			return it, nil
		}
	}

	clickables, err := c.doc.QuerySelectorAll(c.selectors.Clickables)
	if err != nil {
		return nil, err
	}
	for _, el := range clickables {
		if !containsLabel(el, label) {
			continue
		}
		if visible, err := el.IsVisible(); err == nil && visible {
			return el, nil
		}
	}
	return nil, nil
}

func containsLabel(el page.Element, lowerLabel string) bool {
	text, err := el.TextContent()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), lowerLabel)
}

func closestOf(el page.Element, selectors []string) (page.Element, error) {
	for _, sel := range selectors {
		found, err := el.Closest(sel)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

func isButton(el page.Element) bool {
	if el == nil {
		return false
	}
	tag, err := el.TagName()
	return err == nil && strings.EqualFold(tag, "button")
}
