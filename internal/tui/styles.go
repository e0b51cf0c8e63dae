package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Palette is a skin: the handful of colors the dashboard draws with.
type Palette struct {
	Accent   string `yaml:"accent"`
	Value    string `yaml:"value"`
	Text     string `yaml:"text"`
	Muted    string `yaml:"muted"`
	Border   string `yaml:"border"`
	StatusBg string `yaml:"status_bg"`
	StatusFg string `yaml:"status_fg"`
	Error    string `yaml:"error"`
	Bar      string `yaml:"bar"`
}

var builtinSkins = map[string]Palette{
	"default": {
		Accent: "#89B4FA", Value: "#A6E3A1", Text: "#CDD6F4", Muted: "#7F849C",
		Border: "#45475A", StatusBg: "#1E1E2E", StatusFg: "#CDD6F4", Error: "#F38BA8", Bar: "#94E2D5",
	},
	"light": {
		Accent: "#1E66F5", Value: "#40A02B", Text: "#4C4F69", Muted: "#8C8FA1",
		Border: "#BCC0CC", StatusBg: "#E6E9EF", StatusFg: "#4C4F69", Error: "#D20F39", Bar: "#179299",
	},
	"mono": {
		Accent: "15", Value: "15", Text: "7", Muted: "8",
		Border: "8", StatusBg: "0", StatusFg: "7", Error: "9", Bar: "7",
	},
}

// Colors of the active skin.
var (
	ColorAccent   lipgloss.Color
	ColorValue    lipgloss.Color
	ColorText     lipgloss.Color
	ColorMuted    lipgloss.Color
	ColorBorder   lipgloss.Color
	ColorStatusBg lipgloss.Color
	ColorStatusFg lipgloss.Color
	ColorError    lipgloss.Color
	ColorBar      lipgloss.Color
)

func init() {
	applyPalette(builtinSkins["default"])
}

// InitializeSkin activates a built-in skin, or loads <configDir>/skins/<name>.yml.
// Colors missing from a skin file keep the default skin's values.
func InitializeSkin(name, configDir string) error {
	if name == "" {
		name = "default"
	}
	if p, ok := builtinSkins[name]; ok {
		applyPalette(p)
		return nil
	}

	data, err := os.ReadFile(filepath.Join(configDir, "skins", name+".yml"))
	if err != nil {
		return fmt.Errorf("skin %q: %w", name, err)
	}
	p := builtinSkins["default"]
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("skin %q: %w", name, err)
	}
	applyPalette(p)
	return nil
}

func applyPalette(p Palette) {
	ColorAccent = lipgloss.Color(p.Accent)
	ColorValue = lipgloss.Color(p.Value)
	ColorText = lipgloss.Color(p.Text)
	ColorMuted = lipgloss.Color(p.Muted)
	ColorBorder = lipgloss.Color(p.Border)
	ColorStatusBg = lipgloss.Color(p.StatusBg)
	ColorStatusFg = lipgloss.Color(p.StatusFg)
	ColorError = lipgloss.Color(p.Error)
	ColorBar = lipgloss.Color(p.Bar)
}

func cardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
}

func deckStyle(active bool) lipgloss.Style {
	border := ColorBorder
	if active {
		border = ColorAccent
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}
