package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is a self-contained overlay that owns its Update/View lifecycle.
// The topmost modal on the dashboard's stack receives all input and renders
// full-screen.
type Modal interface {
	ID() string
	// Update processes a message. Return pop=true to close the modal.
	Update(msg tea.Msg) (pop bool, cmd tea.Cmd)
	View(width, height int) string
}

// HelpModal lists the key bindings in a scrollable viewport.
type HelpModal struct {
	keys     KeyMap
	viewport viewport.Model
}

// NewHelpModal creates the help overlay for keys.
func NewHelpModal(keys KeyMap) *HelpModal {
	return &HelpModal{keys: keys, viewport: viewport.New(60, 20)}
}

func (h *HelpModal) ID() string { return "help" }

func (h *HelpModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, h.keys.Help, h.keys.Escape, h.keys.Quit):
			return true, nil
		case key.Matches(msg, h.keys.Up):
			h.viewport.ScrollUp(1)
		case key.Matches(msg, h.keys.Down):
			h.viewport.ScrollDown(1)
		case key.Matches(msg, h.keys.PageUp):
			h.viewport.HalfPageUp()
		case key.Matches(msg, h.keys.PageDown):
			h.viewport.HalfPageDown()
		}
		return false, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				h.viewport.ScrollUp(1)
			case tea.MouseButtonWheelDown:
				h.viewport.ScrollDown(1)
			}
		}
	}
	return false, nil
}

func (h *HelpModal) View(width, height int) string {
	modalWidth := max(30, width-8)
	modalHeight := max(8, height-4)
	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	h.viewport.Width = contentWidth
	h.viewport.Height = contentHeight
	h.viewport.SetContent(h.content())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorAccent).
		Bold(true).
		Render("hostdeck help")

	pane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Render(h.viewport.View())

	status := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render("↑/↓: scroll | pgup/pgdn: page | ?/esc: close")

	box := lipgloss.NewStyle().
		Width(modalWidth).
		Height(modalHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, pane, status))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (h *HelpModal) content() string {
	sections := []string{"METRIC HISTORY", "GENERAL", "SCROLLING"}
	keyStyle := lipgloss.NewStyle().Foreground(ColorValue).Width(14)

	var b strings.Builder
	b.WriteString("Cards refresh every cycle: CPU, Memory, GPU, Screen, Extensions.\n")
	b.WriteString("The deck below them charts one stored metric.\n")
	for i, group := range h.keys.FullHelp() {
		b.WriteString("\n" + sections[i] + "\n")
		for _, binding := range group {
			help := binding.Help()
			b.WriteString("  " + keyStyle.Render(help.Key) + help.Desc + "\n")
		}
	}
	return b.String()
}
