package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	minWidth        = 40
	minHeight       = 12
	minDeckHeight   = 7
	statusLineLines = 1
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing dashboard..."
	}
	if modal := m.TopModal(); modal != nil {
		return modal.View(m.width, m.height)
	}
	if m.width < minWidth || m.height < minHeight {
		return fmt.Sprintf("Terminal too small. Resize to at least %dx%d.", minWidth, minHeight)
	}

	body := m.height - statusLineLines
	if !m.hasBoard {
		frame := spinnerFrames[time.Now().UnixMilli()/120%int64(len(spinnerFrames))]
		return lipgloss.JoinVertical(lipgloss.Left,
			placeholder(frame+" Waiting for the first board...", m.width, body),
			m.renderStatusLine())
	}

	grid := renderCardGrid(m.board.Cards, m.width, m.detailBudget(body))
	deckHeight := body - lipgloss.Height(grid)

	sections := []string{grid}
	if deckHeight >= minDeckHeight {
		sections = append(sections, renderHistoryDeck(m.currentMetric(), m.history, m.historyDisabled, m.width, deckHeight))
	}
	sections = append(sections, m.renderStatusLine())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// detailBudget returns how many detail lines per card fit while leaving
// room for the history deck.
func (m *DashboardModel) detailBudget(body int) int {
	cols := cardColumns(m.width, len(m.board.Cards))
	rows := (len(m.board.Cards) + cols - 1) / cols
	if rows == 0 {
		return 0
	}
	perRow := (body-minDeckHeight)/rows - 2 // border
	return max(0, perRow-2)                 // title and value
}

// renderStatusLine renders the bottom line: source, cycle, state and key hints.
func (m *DashboardModel) renderStatusLine() string {
	base := lipgloss.NewStyle().Background(ColorStatusBg).Foreground(ColorStatusFg)
	brand := base.Foreground(ColorAccent).Bold(true).Render(" hostdeck ")

	var parts []string
	if m.source != "" {
		parts = append(parts, m.source)
	}
	if m.hasBoard {
		parts = append(parts, fmt.Sprintf("cycle %d · %s", m.board.Cycle, m.board.GeneratedAt.Format("15:04:05")))
	}
	if m.paused {
		parts = append(parts, "PAUSED")
	}
	left := brand + base.Render(" "+strings.Join(parts, " | ")+" ")

	var right string
	if m.lastError != "" && time.Since(m.lastErrorAt) < errorDisplayTTL {
		right = base.Foreground(ColorError).Render(" " + m.lastError + " ")
	} else {
		hints := make([]string, 0, 4)
		for _, b := range m.keys.ShortHelp() {
			hints = append(hints, b.Help().Key+" "+b.Help().Desc)
		}
		right = base.Foreground(ColorMuted).Render(" " + strings.Join(hints, " · ") + " ")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(left + right)
	}
	return left + base.Render(strings.Repeat(" ", gap)) + right
}
