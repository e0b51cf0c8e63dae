package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

func sizedModel(api model.ReadAPI, w, h int) *DashboardModel {
	m := NewDashboardModel(api, time.Second, 60, "Socket")
	m.width, m.height = w, h
	return m
}

func TestView_Initializing(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(nil, time.Second, 60, "")
	if got := m.View(); got != "Initializing dashboard..." {
		t.Fatalf("View() = %q", got)
	}
}

func TestView_TooSmall(t *testing.T) {
	t.Parallel()

	m := sizedModel(nil, 30, 8)
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Fatal("expected too-small message")
	}
}

func TestView_WaitingForFirstBoard(t *testing.T) {
	t.Parallel()

	m := sizedModel(&fakeAPI{}, 100, 30)
	if !strings.Contains(m.View(), "Waiting for the first board") {
		t.Fatal("expected loading placeholder")
	}
}

func TestView_CardsInOrder(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		board:   testBoard(),
		metrics: []string{model.MetricCPUScore},
		points:  map[string][]model.HistoryPoint{model.MetricCPUScore: testPoints(10, 20, 30)},
	}
	for _, width := range []int{160, 100, 60} {
		m := sizedModel(api, width, 40)
		load(t, m)
		view := m.View()

		last := -1
		for _, title := range []string{"CPU", "Memory", "GPU", "Screen", "Extensions"} {
			idx := strings.Index(view, title)
			if idx < 0 {
				t.Fatalf("width %d: card %q missing", width, title)
			}
			if idx < last {
				t.Fatalf("width %d: card %q out of order", width, title)
			}
			last = idx
		}
		if !strings.Contains(view, "cycle 7") {
			t.Fatalf("width %d: status line missing cycle", width)
		}
		if h := lipgloss.Height(view); h > 40 {
			t.Fatalf("width %d: view height = %d, want <= 40", width, h)
		}
	}
}

func TestView_ModalTakesOverScreen(t *testing.T) {
	t.Parallel()

	m := sizedModel(&fakeAPI{board: testBoard()}, 100, 30)
	load(t, m)
	m.PushModal(NewHelpModal(m.keys))
	if !strings.Contains(m.View(), "hostdeck help") {
		t.Fatal("expected help modal view")
	}
}

func TestCardColumns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		width int
		want  int
	}{
		{200, 5},
		{100, 3},
		{60, 2},
		{40, 1},
	}
	for _, tt := range tests {
		if got := cardColumns(tt.width, 5); got != tt.want {
			t.Errorf("cardColumns(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestRenderCardGrid_LimitsDetails(t *testing.T) {
	t.Parallel()

	cards := []model.Card{{Title: "CPU", Value: "8 cores", Details: []string{"one", "two", "three"}}}
	full := renderCardGrid(cards, 40, -1)
	capped := renderCardGrid(cards, 40, 1)

	if !strings.Contains(full, "three") {
		t.Fatal("uncapped grid should show every detail")
	}
	if strings.Contains(capped, "two") {
		t.Fatal("capped grid should drop extra details")
	}
}

func TestHistoryDeck(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		out := renderHistoryDeck(model.MetricCPUScore, nil, true, 80, 10)
		if !strings.Contains(out, "history is disabled") {
			t.Fatal("expected disabled placeholder")
		}
	})
	t.Run("empty", func(t *testing.T) {
		out := renderHistoryDeck(model.MetricCPUScore, nil, false, 80, 10)
		if !strings.Contains(out, "no samples yet") {
			t.Fatal("expected empty placeholder")
		}
	})
	t.Run("stats", func(t *testing.T) {
		pts := testPoints(1<<20, 3<<20, 2<<20)
		out := renderHistoryDeck(model.MetricHeapUsed, pts, false, 100, 10)
		for _, want := range []string{"min 1.0 MiB", "max 3.0 MiB", "last 2.0 MiB"} {
			if !strings.Contains(out, want) {
				t.Fatalf("deck missing %q", want)
			}
		}
		if h := lipgloss.Height(out); h != 10 {
			t.Fatalf("deck height = %d, want 10", h)
		}
	})
}

func TestFormatMetricValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		metric string
		v      float64
		want   string
	}{
		{model.MetricHeapUsed, 3 << 20, "3.0 MiB"},
		{model.MetricScreenRefreshRate, 144, "144 Hz"},
		{model.MetricCPUCores, 8, "8"},
		{model.MetricCPUScore, 72.5, "72.5"},
	}
	for _, tt := range tests {
		if got := formatMetricValue(tt.metric, tt.v); got != tt.want {
			t.Errorf("formatMetricValue(%s, %v) = %q, want %q", tt.metric, tt.v, got, tt.want)
		}
	}
}

// Skin tests mutate the package palette so they do not run in parallel.
func TestInitializeSkin(t *testing.T) {
	t.Cleanup(func() { applyPalette(builtinSkins["default"]) })

	if err := InitializeSkin("light", ""); err != nil {
		t.Fatalf("builtin skin: %v", err)
	}
	if ColorAccent != lipgloss.Color(builtinSkins["light"].Accent) {
		t.Fatalf("accent = %v, want light accent", ColorAccent)
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "skins"), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := "accent: \"#FF0000\"\nbar: \"#00FF00\"\n"
	if err := os.WriteFile(filepath.Join(dir, "skins", "custom.yml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitializeSkin("custom", dir); err != nil {
		t.Fatalf("custom skin: %v", err)
	}
	if ColorAccent != lipgloss.Color("#FF0000") || ColorBar != lipgloss.Color("#00FF00") {
		t.Fatalf("custom colors not applied: accent=%v bar=%v", ColorAccent, ColorBar)
	}
	if ColorMuted != lipgloss.Color(builtinSkins["default"].Muted) {
		t.Fatalf("unset colors should fall back to default, got muted=%v", ColorMuted)
	}

	if err := InitializeSkin("missing", dir); err == nil {
		t.Fatal("expected error for a missing skin")
	}
}
