package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// formatMetricValue renders a stored value in the metric's natural unit.
func formatMetricValue(metric string, v float64) string {
	switch {
	case strings.HasPrefix(metric, "memory.") && v >= 0:
		return humanize.IBytes(uint64(v))
	case metric == model.MetricScreenRefreshRate:
		return strconv.FormatFloat(v, 'f', 0, 64) + " Hz"
	case v == float64(int64(v)):
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
}

// renderHistoryDeck charts points of metric as one bar per cycle, newest
// on the right.
func renderHistoryDeck(metric string, points []model.HistoryPoint, disabled bool, width, height int) string {
	innerWidth := max(10, width-4)
	innerHeight := max(1, height-2)

	header := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("History · " + metric)
	var body string

	switch {
	case disabled:
		body = placeholder("history is disabled on the daemon", innerWidth, innerHeight-1)
	case len(points) == 0:
		body = placeholder("no samples yet", innerWidth, innerHeight-1)
	default:
		lo, hi := points[0].Value, points[0].Value
		for _, p := range points {
			lo, hi = min(lo, p.Value), max(hi, p.Value)
		}
		last := points[len(points)-1].Value
		stats := fmt.Sprintf("min %s · max %s · last %s",
			formatMetricValue(metric, lo), formatMetricValue(metric, hi), formatMetricValue(metric, last))
		if gap := innerWidth - lipgloss.Width(header) - lipgloss.Width(stats); gap > 0 {
			header += strings.Repeat(" ", gap) + lipgloss.NewStyle().Foreground(ColorMuted).Render(stats)
		}
		body = renderBars(points, innerWidth, innerHeight-1)
	}

	return deckStyle(true).
		Width(width - 2).
		Height(innerHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

func renderBars(points []model.HistoryPoint, width, height int) string {
	if height < 1 {
		return ""
	}
	maxBars := max(1, width/2)
	if len(points) > maxBars {
		points = points[len(points)-maxBars:]
	}
	peak := 0.0
	for _, p := range points {
		peak = max(peak, p.Value)
	}
	if peak <= 0 {
		return placeholder("flat at zero", width, height)
	}

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	style := lipgloss.NewStyle().Foreground(ColorBar).Background(ColorBar)
	empty := lipgloss.NewStyle().Foreground(ColorBorder)

	for i := len(points); i < maxBars; i++ {
		bc.Push(barchart.BarData{Values: []barchart.BarValue{{Name: "empty", Value: 0, Style: empty}}})
	}
	for _, p := range points {
		v := max(0, p.Value)
		bc.Push(barchart.BarData{Values: []barchart.BarValue{{Name: "value", Value: v, Style: style}}})
	}

	bc.Draw()
	return bc.View()
}

func placeholder(text string, width, height int) string {
	msg := lipgloss.NewStyle().Foreground(ColorMuted).Italic(true).Render(text)
	return lipgloss.Place(width, max(1, height), lipgloss.Center, lipgloss.Center, msg)
}
