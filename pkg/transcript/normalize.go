package transcript

import (
	"strings"

	"github.com/entrhq/threadsweep/pkg/page"
)

// strippedSelector lists elements whose text never belongs to a message.
const strippedSelector = "script, style"

// Normalize returns el's visible text on a single line: script and style
// content removed, whitespace runs collapsed, ends trimmed. It works on a
// detached clone so the live page is never modified. A nil element or any
// backend failure yields "".
func Normalize(el page.Element) string {
	if el == nil {
		return ""
	}
	clone, err := el.Clone()
	if err != nil || clone == nil {
		return ""
	}
	noise, err := clone.QuerySelectorAll(strippedSelector)
	if err != nil {
		return ""
	}
	for _, n := range noise {
		if err := n.Remove(); err != nil {
			return ""
		}
	}
	text, err := clone.TextContent()
	if err != nil {
		return ""
	}
	return CollapseWhitespace(text)
}

// CollapseWhitespace replaces every whitespace run with one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
