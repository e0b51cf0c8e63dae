package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		if modal := m.TopModal(); modal != nil {
			pop, cmd := modal.Update(msg)
			if pop {
				m.PopModal()
			}
			return m, cmd
		}
		return m, nil

	case TickMsg:
		if m.paused || m.tickInFlight {
			return m, m.tickCmd()
		}
		m.tickInFlight = true
		return m, tea.Batch(m.fetchCmd(), m.tickCmd())

	case dataLoadedMsg:
		m.tickInFlight = false
		m.applyData(msg)
		return m, nil

	case SpinnerTickMsg:
		if !m.hasBoard {
			return m, spinnerTick()
		}
		return m, nil
	}
	return m, nil
}

func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	if modal := m.TopModal(); modal != nil {
		pop, cmd := modal.Update(msg)
		if pop {
			m.PopModal()
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.PushModal(NewHelpModal(m.keys))
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshNow()
	case key.Matches(msg, m.keys.NextMetric):
		m.cycleMetric(1)
		return m, m.refreshNow()
	case key.Matches(msg, m.keys.PrevMetric):
		m.cycleMetric(-1)
		return m, m.refreshNow()
	}
	return m, nil
}

// refreshNow fetches outside the tick schedule unless a fetch is running.
func (m *DashboardModel) refreshNow() tea.Cmd {
	if m.tickInFlight {
		return nil
	}
	m.tickInFlight = true
	return m.fetchCmd()
}
