package tui

import (
	"time"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// fakeAPI is an in-memory model.ReadAPI.
type fakeAPI struct {
	board           *model.Board
	metrics         []string
	points          map[string][]model.HistoryPoint
	historyDisabled bool
	historyCalls    []string
}

func (f *fakeAPI) CurrentBoard() (model.Board, error) {
	if f.board == nil {
		return model.Board{}, model.ErrNoBoard
	}
	return *f.board, nil
}

func (f *fakeAPI) History(metric string, limit int) ([]model.HistoryPoint, error) {
	if f.historyDisabled {
		return nil, model.ErrHistoryDisabled
	}
	f.historyCalls = append(f.historyCalls, metric)
	pts := f.points[metric]
	if len(pts) > limit {
		pts = pts[len(pts)-limit:]
	}
	return pts, nil
}

func (f *fakeAPI) ListMetrics() ([]string, error) {
	if f.historyDisabled {
		return nil, model.ErrHistoryDisabled
	}
	return f.metrics, nil
}

func testBoard() *model.Board {
	return &model.Board{
		Cycle:       7,
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Cards: []model.Card{
			{Title: "CPU", Emoji: "🧠", Value: "8 cores", Details: []string{"Vendor: GenuineIntel", "Performance: 72/100"}},
			{Title: "Memory", Emoji: "💾", Value: "3.0 MiB", Details: []string{"Heap reserved: 8.0 MiB"}},
			{Title: "GPU", Emoji: "🎮", Value: "GPU info not available"},
			{Title: "Screen", Emoji: "🖥️", Value: "2560 × 1440", Details: []string{"Refresh rate: 60 Hz"}},
			{Title: "Extensions", Emoji: "🧩", Value: "2", Details: []string{"• vim", "• git"}},
		},
	}
}

func testPoints(values ...float64) []model.HistoryPoint {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pts := make([]model.HistoryPoint, len(values))
	for i, v := range values {
		pts[i] = model.HistoryPoint{At: start.Add(time.Duration(i) * 2 * time.Second), Cycle: uint64(i + 1), Value: v}
	}
	return pts
}
