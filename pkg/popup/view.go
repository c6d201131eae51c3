package popup

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultWidth = 64

// View renders the popup.
func (m *model) View() string {
	width := m.width
	if width <= 0 || width > defaultWidth {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("threadsweep"))
	if m.identity != "" {
		b.WriteString(" " + helpStyle.Render(string(m.identity)))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateBusy:
		b.WriteString(m.spinner.View() + " " + m.busyText)
	case stateResult:
		b.WriteString(m.renderResult(width))
	case stateError:
		b.WriteString(errorStyle.Render(m.err))
		if m.apiKeyHint {
			b.WriteString("\n" + helpStyle.Render(APIKeyHint))
		}
	default:
		b.WriteString("Press enter to analyze this conversation.")
	}

	if m.status != "" {
		b.WriteString("\n\n" + statusStyle.Render(m.status))
	}
	b.WriteString("\n\n" + helpStyle.Render(m.helpLine()))

	return boxStyle.Width(width).Render(b.String()) + "\n"
}

func (m *model) renderResult(width int) string {
	e := m.eval
	var lines []string
	if m.fromCache {
		lines = append(lines, cacheStyle.Render("From cache"))
	}
	summary := lipgloss.NewStyle().Width(width - 4).Render(orDash(e.Summary))
	lines = append(lines,
		labelStyle.Render("Summary"),
		summary,
		"",
		labelStyle.Render("Category: ")+orDash(e.Category),
		labelStyle.Render("Value: ")+e.FormatValue()+" / 10",
		labelStyle.Render("Recommendation: ")+recommendationStyle(e.Recommendation).Render(orDash(string(e.Recommendation))),
	)
	if e.Reason != "" {
		lines = append(lines, labelStyle.Render("Reason: ")+e.Reason)
	}
	return strings.Join(lines, "\n")
}

func (m *model) helpLine() string {
	analyze := "enter analyze"
	if m.eval != nil {
		analyze = "enter analyze again"
	}
	parts := []string{analyze}
	if m.eval != nil {
		parts = append(parts, "c copy")
	}
	parts = append(parts, "r archive", "d delete", "q quit")
	return strings.Join(parts, " • ")
}
