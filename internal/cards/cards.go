// Package cards turns a Sample into the fixed, ordered list of display cards.
package cards

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// Card titles in display order.
const (
	TitleCPU        = "CPU"
	TitleMemory     = "Memory"
	TitleGPU        = "GPU"
	TitleScreen     = "Screen"
	TitleExtensions = "Extensions"
)

// Order is the fixed card order of every board.
var Order = []string{TitleCPU, TitleMemory, TitleGPU, TitleScreen, TitleExtensions}

var emojis = map[string]string{
	TitleCPU:        "🧠",
	TitleMemory:     "💾",
	TitleGPU:        "🎮",
	TitleScreen:     "🖥️",
	TitleExtensions: "🧩",
}

const maxListedExtensions = 5

// Build returns exactly one card per category in Order.
func Build(s model.Sample) []model.Card {
	return []model.Card{
		cpuCard(s.CPU),
		memoryCard(s.Memory),
		gpuCard(s.GPU),
		screenCard(s.Screen),
		extensionsCard(s.Extensions),
	}
}

func newCard(title, value string, details ...string) model.Card {
	out := make([]string, 0, len(details))
	for _, d := range details {
		if strings.TrimSpace(d) != "" {
			out = append(out, d)
		}
	}
	return model.Card{
		Title:   title,
		Emoji:   emojis[title],
		Value:   placeholder(value),
		Details: out,
	}
}

func placeholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.Unavailable
	}
	return s
}

func cpuCard(c model.CPUSample) model.Card {
	value := model.Unavailable
	if c.Cores.Available() {
		value = fmt.Sprintf("%d cores", c.Cores.Int())
	}

	features := "none detected"
	if len(c.Features) > 0 {
		features = strings.Join(c.Features, ", ")
	}
	score := c.Score.String()
	if c.Score.Available() {
		score = fmt.Sprintf("%d/100", c.Score.Int())
	}

	return newCard(TitleCPU, value,
		"Vendor: "+placeholder(c.Vendor),
		"Model: "+placeholder(c.Model),
		"Architecture: "+placeholder(c.Architecture),
		"Threads: "+c.Threads.String(),
		"Performance: "+score,
		"Features: "+features,
	)
}

// bytes renders a byte-valued Result with binary units.
func bytes(r model.Result) string {
	if r.Kind != model.KindNumber || r.Number < 0 {
		return r.String()
	}
	return humanize.IBytes(uint64(r.Number))
}

func memoryCard(m model.MemorySample) model.Card {
	host := model.Unavailable
	if m.HostUsed.Available() && m.HostTotal.Available() {
		host = fmt.Sprintf("%s / %s", bytes(m.HostUsed), bytes(m.HostTotal))
	}
	return newCard(TitleMemory, bytes(m.HeapUsed),
		"Heap reserved: "+bytes(m.HeapTotal),
		"Heap limit: "+bytes(m.HeapLimit),
		"Host memory: "+host,
	)
}

func gpuCard(g model.GPUResult) model.Card {
	switch g.Kind {
	case model.GPUInfo:
		return newCard(TitleGPU, g.Renderer, "Vendor: "+placeholder(g.Vendor))
	case model.GPUUnavailable:
		return newCard(TitleGPU, g.String(), "Device found, identifiers not exposed")
	default:
		return newCard(TitleGPU, g.String(), "No graphics device")
	}
}

func screenCard(s model.ScreenSample) model.Card {
	value := model.Unavailable
	if s.Width.Available() && s.Height.Available() {
		value = fmt.Sprintf("%d × %d", s.Width.Int(), s.Height.Int())
	}
	terminal := model.Unavailable
	if s.Columns.Available() && s.Rows.Available() {
		terminal = fmt.Sprintf("%d × %d", s.Columns.Int(), s.Rows.Int())
	}
	return newCard(TitleScreen, value,
		"Refresh rate: "+s.RefreshRate.String(),
		"Terminal: "+terminal,
		"Color: "+s.ColorProfile.String(),
	)
}

func extensionsCard(e model.ExtensionSample) model.Card {
	var details []string
	if e.Source != "" {
		details = append(details, "Source: "+e.Source)
	}
	for i, name := range e.Names {
		if i == maxListedExtensions {
			details = append(details, fmt.Sprintf("… and %d more", len(e.Names)-maxListedExtensions))
			break
		}
		details = append(details, "• "+name)
	}
	return newCard(TitleExtensions, e.Count.String(), details...)
}
