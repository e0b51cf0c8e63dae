// Package sampler runs every probe for one pass and gathers the results.
package sampler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/hostdeck/internal/model"
	"github.com/tinytelemetry/hostdeck/internal/probe"
)

// Probes holds one function per signal. A nil entry reports unavailable.
type Probes struct {
	CPU        func(context.Context) model.CPUSample
	Score      func(context.Context) model.Result
	Memory     func(context.Context) model.MemorySample
	GPU        func(context.Context) model.GPUResult
	Screen     func(context.Context) model.ScreenSample
	Extensions func(context.Context) model.ExtensionSample
}

// Config selects where the default probes look for platform data.
type Config struct {
	SysfsRoot      string
	BrowserHome    string
	RefreshHint    int
	RefreshSamples int
	FrameInterval  time.Duration
}

// DefaultProbes wires the host probes.
func DefaultProbes(cfg Config) Probes {
	sysfs := probe.Sysfs{Root: cfg.SysfsRoot}
	host := probe.HostInfo{}

	frame := cfg.FrameInterval
	if frame <= 0 {
		frame = model.DefaultFrameInterval
	}
	refresh := probe.NewRefreshEstimator(probe.TickerSource{Interval: frame}, cfg.RefreshSamples,
		probe.StaticHint(cfg.RefreshHint), sysfs)

	identity := &probe.IdentityProbe{Source: host, Capabilities: probe.DefaultCapabilities(sysfs.Root)}
	perf := probe.NewPerformanceProbe()
	memory := probe.NewMemoryProbe(host)
	gpu := &probe.GPUProbe{Provider: sysfs}
	screen := &probe.ScreenProbe{Display: sysfs, Terminal: probe.Terminal{}, Refresh: refresh}
	extensions := &probe.ExtensionProbe{APIs: probe.DefaultExtensionAPIs(cfg.BrowserHome)}

	return Probes{
		CPU:        identity.Identify,
		Score:      perf.Score,
		Memory:     memory.Probe,
		GPU:        gpu.Probe,
		Screen:     screen.Probe,
		Extensions: extensions.Probe,
	}
}

// Sampler collects a Sample by running all probes concurrently.
type Sampler struct {
	probes Probes
	now    func() time.Time
}

// New creates a Sampler over probes.
func New(probes Probes) *Sampler {
	return &Sampler{probes: probes, now: time.Now}
}

// Collect runs every probe and waits for all of them. Probes write disjoint
// fields, so no locking is needed. There is no per-probe timeout: a probe
// that never returns stalls the pass until ctx is canceled.
func (s *Sampler) Collect(ctx context.Context) (model.Sample, error) {
	na := model.UnavailableResult("")
	sample := model.Sample{
		At: s.now(),
		CPU: model.CPUSample{
			Vendor: model.Unavailable, Model: model.Unavailable, Architecture: model.Unavailable,
			Cores: na, Threads: na, Score: na,
		},
		Memory:     model.MemorySample{HeapUsed: na, HeapTotal: na, HeapLimit: na, HostUsed: na, HostTotal: na},
		GPU:        model.GPUResult{Kind: model.GPUUnsupported},
		Screen:     model.ScreenSample{Width: na, Height: na, Columns: na, Rows: na, ColorProfile: na, RefreshRate: na},
		Extensions: model.ExtensionSample{Count: na},
	}

	var cpu model.CPUSample
	var score model.Result
	haveCPU, haveScore := false, false

	g, gctx := errgroup.WithContext(ctx)
	if p := s.probes.CPU; p != nil {
		g.Go(func() error { cpu = p(gctx); haveCPU = true; return nil })
	}
	if p := s.probes.Score; p != nil {
		g.Go(func() error { score = p(gctx); haveScore = true; return nil })
	}
	if p := s.probes.Memory; p != nil {
		g.Go(func() error { sample.Memory = p(gctx); return nil })
	}
	if p := s.probes.GPU; p != nil {
		g.Go(func() error { sample.GPU = p(gctx); return nil })
	}
	if p := s.probes.Screen; p != nil {
		g.Go(func() error { sample.Screen = p(gctx); return nil })
	}
	if p := s.probes.Extensions; p != nil {
		g.Go(func() error { sample.Extensions = p(gctx); return nil })
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return model.Sample{}, ctx.Err()
	}

	if haveCPU {
		sample.CPU = cpu
	}
	if haveScore {
		sample.CPU.Score = score
	}
	return sample, nil
}
