package probe

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const unknownIdentity = "Unknown"

var knownVendors = []string{"Intel", "AMD", "Apple"}

// Trademark marks are dropped before extracting the model token.
var trademarkRe = regexp.MustCompile(`(?i)\((?:r|tm)\)`)

var modelRes = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(knownVendors))
	for _, v := range knownVendors {
		out[v] = regexp.MustCompile(`(?i)\b` + v + `\b\s+([\w-]+(?:\s+[\w-]+)?)`)
	}
	return out
}()

// CPUInfoSource exposes whatever identification data the platform offers.
type CPUInfoSource interface {
	Identification(ctx context.Context) (string, error)
	Platform() string
	Concurrency(ctx context.Context, logical bool) (int, error)
}

// Capability is one named presence check reported in the CPU feature list.
type Capability struct {
	Name    string
	Present func() bool
}

// IdentityProbe guesses CPU vendor, model, architecture and features.
type IdentityProbe struct {
	Source       CPUInfoSource
	Capabilities []Capability
}

// Identify fills every CPUSample field except Score. Each field degrades on
// its own: a failing concurrency hint leaves vendor and model intact.
func (p *IdentityProbe) Identify(ctx context.Context) model.CPUSample {
	out := model.CPUSample{
		Vendor:       model.Unavailable,
		Model:        model.Unavailable,
		Architecture: model.Unavailable,
		Features:     []string{},
		Cores:        model.UnavailableResult(""),
		Threads:      model.UnavailableResult(""),
	}
	if p.Source == nil {
		return out
	}

	type ident struct{ vendor, model, arch string }
	id := guard("cpu-identity", ident{model.Unavailable, model.Unavailable, model.Unavailable}, func() (ident, error) {
		s, err := p.Source.Identification(ctx)
		if err != nil {
			return ident{}, err
		}
		v, m, a := ParseIdentity(s, p.Source.Platform())
		return ident{v, m, a}, nil
	})
	out.Vendor, out.Model, out.Architecture = id.vendor, id.model, id.arch

	out.Cores = p.count(ctx, "cpu-cores", false)
	out.Threads = p.count(ctx, "cpu-threads", true)
	out.Features = p.features()
	return out
}

func (p *IdentityProbe) count(ctx context.Context, name string, logical bool) model.Result {
	return guard(name, model.UnavailableResult(""), func() (model.Result, error) {
		n, err := p.Source.Concurrency(ctx, logical)
		if err != nil {
			return model.Result{}, err
		}
		if n <= 0 {
			return model.Result{}, errMissing("hardware concurrency hint")
		}
		return model.NumberResult(float64(n), ""), nil
	})
}

func (p *IdentityProbe) features() []string {
	seen := make(map[string]bool, len(p.Capabilities))
	out := make([]string, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		if c.Present == nil || seen[c.Name] {
			continue
		}
		present := guard("capability "+c.Name, false, func() (bool, error) {
			return c.Present(), nil
		})
		if present {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	return out
}

// ParseIdentity extracts a best-effort vendor, model and architecture from
// an identification string and a platform string. Results are guesses.
func ParseIdentity(ident, platform string) (vendor, model, arch string) {
	vendor, model = unknownIdentity, unknownIdentity
	lower := strings.ToLower(ident)
	for _, v := range knownVendors {
		if strings.Contains(lower, strings.ToLower(v)) {
			vendor = v
			break
		}
	}

	if vendor != unknownIdentity {
		cleaned := trademarkRe.ReplaceAllString(ident, "")
		if m := modelRes[vendor].FindStringSubmatch(cleaned); len(m) > 1 {
			model = strings.TrimSpace(m[1])
		}
	}

	arch = "32-bit"
	if strings.Contains(platform, "64") {
		arch = "64-bit"
	}
	return vendor, model, arch
}

// DefaultCapabilities returns the host capability checks. sysfsRoot is
// normally "/sys".
func DefaultCapabilities(sysfsRoot string) []Capability {
	return []Capability{
		{Name: "Parallel execution", Present: func() bool { return runtime.GOMAXPROCS(0) > 1 }},
		{Name: "Shared memory", Present: func() bool { return isDir("/dev/shm") }},
		{Name: "Wake lock", Present: func() bool {
			if exists(filepath.Join(sysfsRoot, "power", "wake_lock")) {
				return true
			}
			_, err := exec.LookPath("systemd-inhibit")
			return err == nil
		}},
		{Name: "Background workers", Present: func() bool {
			_, err := exec.LookPath("systemd-run")
			return err == nil
		}},
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
