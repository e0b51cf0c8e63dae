package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const (
	minCardWidth = 26
	cardGap      = 1
)

// cardColumns picks how many cards fit side by side.
func cardColumns(width, count int) int {
	for _, cols := range []int{5, 3, 2} {
		if cols <= count && width >= cols*minCardWidth+(cols-1)*cardGap {
			return cols
		}
	}
	return 1
}

// renderCardGrid lays cards out in rows within width. maxDetails caps the
// detail lines per card; a negative value shows them all.
func renderCardGrid(cards []model.Card, width, maxDetails int) string {
	if len(cards) == 0 {
		return ""
	}
	cols := cardColumns(width, len(cards))
	cardWidth := (width - (cols-1)*cardGap) / cols

	var rows []string
	for start := 0; start < len(cards); start += cols {
		end := min(start+cols, len(cards))
		row := cards[start:end]

		height := 0
		for _, c := range row {
			height = max(height, cardLines(c, maxDetails))
		}

		rendered := make([]string, 0, len(row)*2)
		for i, c := range row {
			if i > 0 {
				rendered = append(rendered, strings.Repeat(" ", cardGap))
			}
			rendered = append(rendered, renderCard(c, cardWidth, height, maxDetails))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func cardLines(c model.Card, maxDetails int) int {
	n := len(c.Details)
	if maxDetails >= 0 && n > maxDetails {
		n = maxDetails
	}
	return 2 + n
}

// renderCard draws one bordered card; width and height are outer sizes
// minus the border.
func renderCard(c model.Card, width, height, maxDetails int) string {
	inner := max(1, width-4)
	clip := lipgloss.NewStyle().MaxWidth(inner)

	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(c.Emoji + " " + c.Title)
	value := lipgloss.NewStyle().Foreground(ColorValue).Bold(true).Render(c.Value)

	lines := []string{clip.Render(title), clip.Render(value)}
	detail := lipgloss.NewStyle().Foreground(ColorMuted)
	for i, d := range c.Details {
		if maxDetails >= 0 && i >= maxDetails {
			break
		}
		lines = append(lines, clip.Render(detail.Render(d)))
	}

	return cardStyle().
		Width(width - 2).
		Height(height).
		Render(strings.Join(lines, "\n"))
}
