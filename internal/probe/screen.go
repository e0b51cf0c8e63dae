package probe

import (
	"context"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// DisplayInfo reports the primary display size in pixels.
type DisplayInfo interface {
	Geometry() (width, height int, err error)
}

// TerminalInfo reports the controlling terminal's size and color support.
type TerminalInfo interface {
	Size() (cols, rows int, err error)
	ColorProfile() (string, error)
}

// ScreenProbe combines display geometry, terminal geometry and the refresh
// rate estimate.
type ScreenProbe struct {
	Display  DisplayInfo
	Terminal TerminalInfo
	Refresh  *RefreshEstimator
}

func (p *ScreenProbe) Probe(ctx context.Context) model.ScreenSample {
	na := model.UnavailableResult("")
	out := model.ScreenSample{Width: na, Height: na, Columns: na, Rows: na, ColorProfile: na, RefreshRate: na}

	if p.Display != nil {
		type size struct{ w, h model.Result }
		s := guard("display-geometry", size{na, na}, func() (size, error) {
			w, h, err := p.Display.Geometry()
			if err != nil {
				return size{}, err
			}
			return size{model.NumberResult(float64(w), "px"), model.NumberResult(float64(h), "px")}, nil
		})
		out.Width, out.Height = s.w, s.h
	}

	if p.Terminal != nil {
		type size struct{ c, r model.Result }
		s := guard("terminal-size", size{na, na}, func() (size, error) {
			c, r, err := p.Terminal.Size()
			if err != nil {
				return size{}, err
			}
			return size{model.NumberResult(float64(c), ""), model.NumberResult(float64(r), "")}, nil
		})
		out.Columns, out.Rows = s.c, s.r

		out.ColorProfile = guard("color-profile", na, func() (model.Result, error) {
			name, err := p.Terminal.ColorProfile()
			if err != nil {
				return model.Result{}, err
			}
			return model.TextResult(name), nil
		})
	}

	if p.Refresh != nil {
		out.RefreshRate = p.Refresh.Estimate(ctx)
	}
	return out
}

// Terminal inspects an *os.File, normally os.Stdout.
type Terminal struct {
	File *os.File
}

func (t Terminal) file() *os.File {
	if t.File != nil {
		return t.File
	}
	return os.Stdout
}

func (t Terminal) Size() (int, int, error) {
	f := t.file()
	if !term.IsTerminal(int(f.Fd())) {
		return 0, 0, errMissing("terminal")
	}
	return term.GetSize(int(f.Fd()))
}

func (t Terminal) ColorProfile() (string, error) {
	f := t.file()
	if !term.IsTerminal(int(f.Fd())) {
		return "", errMissing("terminal")
	}
	return profileName(termenv.NewOutput(f).Profile), nil
}

func profileName(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "24-bit color"
	case termenv.ANSI256:
		return "8-bit color"
	case termenv.ANSI:
		return "4-bit color"
	default:
		return "monochrome"
	}
}
