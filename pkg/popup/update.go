package popup

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/threadsweep/pkg/automation"
)

// Update handles key presses and command results.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != stateBusy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analysisDoneMsg:
		if msg.err != nil {
			m.logger.Warnf("analysis of %s failed: %v", m.identity, msg.err)
			m.showError(msg.err.Error())
			return m, nil
		}
		m.showResult(msg.eval, false)
		return m, nil

	case actionDoneMsg:
		m.state = m.settledState()
		if msg.ok {
			m.status = msg.label + " clicked"
		} else {
			m.status = msg.label + " failed: menu item not found"
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	}
	if m.state == stateBusy {
		return m, nil
	}

	switch msg.String() {
	case "enter", "a":
		m.startBusy("Analyzing conversation…")
		return m, tea.Batch(m.spinner.Tick, m.analyzeCmd())

	case "c":
		if m.eval == nil {
			return m, nil
		}
		return m, m.copyCmd(*m.eval)

	case "r":
		m.startBusy("Archiving…")
		return m, tea.Batch(m.spinner.Tick, m.actionCmd(automation.TriggerArchive, "Archive"))

	case "d":
		m.startBusy("Deleting…")
		return m, tea.Batch(m.spinner.Tick, m.actionCmd(automation.TriggerDelete, "Delete"))
	}
	return m, nil
}

func (m *model) startBusy(text string) {
	m.state = stateBusy
	m.busyText = text
	m.status = ""
}

// settledState is the view to return to once a menu action finishes.
func (m *model) settledState() viewState {
	switch {
	case m.eval != nil:
		return stateResult
	case m.err != "":
		return stateError
	default:
		return stateIdle
	}
}
