package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Unavailable is the placeholder shown for any metric a probe could not measure.
const Unavailable = "N/A"

// Descriptive unavailable variants reported by the GPU probe.
const (
	GPUUnsupportedText = "WebGL not supported"
	GPUUnavailableText = "GPU info not available"
)

// ResultKind tags the value carried by a Result.
type ResultKind int

const (
	KindUnavailable ResultKind = iota
	KindNumber
	KindText
)

func (k ResultKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "unavailable"
	}
}

// Result is one metric produced by a probe: a number, a string, or the
// unavailable sentinel. It lives for a single sampling pass.
type Result struct {
	Kind   ResultKind `json:"kind" yaml:"kind"`
	Number float64    `json:"number,omitempty" yaml:"number,omitempty"`
	Unit   string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Text   string     `json:"text,omitempty" yaml:"text,omitempty"`
}

// NumberResult returns a measured numeric Result.
func NumberResult(v float64, unit string) Result {
	return Result{Kind: KindNumber, Number: v, Unit: unit}
}

// TextResult returns a measured string Result. An empty string is treated
// as unavailable so cards never render blank values.
func TextResult(s string) Result {
	if strings.TrimSpace(s) == "" {
		return UnavailableResult("")
	}
	return Result{Kind: KindText, Text: s}
}

// UnavailableResult returns the sentinel. An empty reason means "N/A".
func UnavailableResult(reason string) Result {
	if reason == "" {
		reason = Unavailable
	}
	return Result{Kind: KindUnavailable, Text: reason}
}

// Available reports whether the Result holds a real measurement.
func (r Result) Available() bool {
	return r.Kind != KindUnavailable
}

// Int returns the numeric value rounded to the nearest integer.
func (r Result) Int() int {
	return int(math.Round(r.Number))
}

// String renders the value for display. Whole numbers drop their decimals.
func (r Result) String() string {
	switch r.Kind {
	case KindNumber:
		var s string
		if r.Number == float64(int64(r.Number)) {
			s = strconv.FormatInt(int64(r.Number), 10)
		} else {
			s = strconv.FormatFloat(r.Number, 'f', 1, 64)
		}
		if r.Unit != "" {
			s += " " + r.Unit
		}
		return s
	case KindText:
		return r.Text
	default:
		if r.Text == "" {
			return Unavailable
		}
		return r.Text
	}
}

// CPUSample groups the CPU identity guess, the hardware concurrency hint
// and the performance score.
type CPUSample struct {
	Vendor       string   `json:"vendor" yaml:"vendor"`
	Model        string   `json:"model" yaml:"model"`
	Architecture string   `json:"architecture" yaml:"architecture"`
	Features     []string `json:"features" yaml:"features"`
	Cores        Result   `json:"cores" yaml:"cores"`
	Threads      Result   `json:"threads" yaml:"threads"`
	Score        Result   `json:"score" yaml:"score"`
}

// MemorySample holds process heap and host memory figures in bytes.
type MemorySample struct {
	HeapUsed  Result `json:"heap_used" yaml:"heap_used"`
	HeapTotal Result `json:"heap_total" yaml:"heap_total"`
	HeapLimit Result `json:"heap_limit" yaml:"heap_limit"`
	HostUsed  Result `json:"host_used" yaml:"host_used"`
	HostTotal Result `json:"host_total" yaml:"host_total"`
}

// GPUKind distinguishes the three outcomes of the GPU probe.
type GPUKind int

const (
	GPUUnsupported GPUKind = iota // no graphics context could be created
	GPUUnavailable                // context exists, debug info does not
	GPUInfo                       // vendor and renderer are known
)

// GPUResult is the tagged GPU probe outcome. Vendor and Renderer are only
// meaningful when Kind == GPUInfo.
type GPUResult struct {
	Kind     GPUKind `json:"kind" yaml:"kind"`
	Vendor   string  `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Renderer string  `json:"renderer,omitempty" yaml:"renderer,omitempty"`
}

// String returns the renderer, or the descriptive unavailable text.
func (g GPUResult) String() string {
	switch g.Kind {
	case GPUInfo:
		return g.Renderer
	case GPUUnavailable:
		return GPUUnavailableText
	default:
		return GPUUnsupportedText
	}
}

// ScreenSample describes the primary display and the controlling terminal.
type ScreenSample struct {
	Width        Result `json:"width" yaml:"width"`
	Height       Result `json:"height" yaml:"height"`
	Columns      Result `json:"columns" yaml:"columns"`
	Rows         Result `json:"rows" yaml:"rows"`
	ColorProfile Result `json:"color_profile" yaml:"color_profile"`
	RefreshRate  Result `json:"refresh_rate" yaml:"refresh_rate"`
}

// ExtensionSample reports the installed browser extensions found through
// whichever management source was present.
type ExtensionSample struct {
	Count  Result   `json:"count" yaml:"count"`
	Source string   `json:"source,omitempty" yaml:"source,omitempty"`
	Names  []string `json:"names,omitempty" yaml:"names,omitempty"`
}

// Sample is everything gathered by one sampling pass.
type Sample struct {
	At         time.Time       `json:"at" yaml:"at"`
	CPU        CPUSample       `json:"cpu" yaml:"cpu"`
	Memory     MemorySample    `json:"memory" yaml:"memory"`
	GPU        GPUResult       `json:"gpu" yaml:"gpu"`
	Screen     ScreenSample    `json:"screen" yaml:"screen"`
	Extensions ExtensionSample `json:"extensions" yaml:"extensions"`
}

// Card is one rendered unit of the board.
type Card struct {
	Title   string   `json:"title" yaml:"title"`
	Emoji   string   `json:"emoji" yaml:"emoji"`
	Value   string   `json:"value" yaml:"value"`
	Details []string `json:"details" yaml:"details"`
}

// Board is the complete set of cards published by one cycle.
type Board struct {
	Cycle       uint64    `json:"cycle" yaml:"cycle"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Cards       []Card    `json:"cards" yaml:"cards"`
}

// HistoryPoint is one stored numeric observation of a metric.
type HistoryPoint struct {
	At    time.Time `json:"at"`
	Cycle uint64    `json:"cycle"`
	Value float64   `json:"value"`
}
