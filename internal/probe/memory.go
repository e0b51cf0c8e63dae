package probe

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// HostMemory reports host-wide memory usage in bytes.
type HostMemory interface {
	VirtualMemory(ctx context.Context) (total, used uint64, err error)
}

// MemoryProbe reports the process heap and, when available, host memory.
type MemoryProbe struct {
	Host      HostMemory
	ReadStats func(*runtime.MemStats)
	Limit     func() int64
}

// NewMemoryProbe returns a probe backed by the Go runtime and host.
func NewMemoryProbe(host HostMemory) *MemoryProbe {
	return &MemoryProbe{
		Host:      host,
		ReadStats: runtime.ReadMemStats,
		Limit:     func() int64 { return debug.SetMemoryLimit(-1) },
	}
}

// Probe never fails as a whole; each figure degrades on its own.
func (p *MemoryProbe) Probe(ctx context.Context) model.MemorySample {
	na := model.UnavailableResult("")
	out := model.MemorySample{HeapUsed: na, HeapTotal: na, HeapLimit: na, HostUsed: na, HostTotal: na}

	type heap struct{ used, total model.Result }
	h := guard("heap", heap{na, na}, func() (heap, error) {
		if p.ReadStats == nil {
			return heap{}, errMissing("heap statistics")
		}
		var ms runtime.MemStats
		p.ReadStats(&ms)
		return heap{
			used:  model.NumberResult(float64(ms.HeapAlloc), "B"),
			total: model.NumberResult(float64(ms.HeapSys), "B"),
		}, nil
	})
	out.HeapUsed, out.HeapTotal = h.used, h.total

	out.HeapLimit = guard("heap-limit", na, func() (model.Result, error) {
		if p.Limit == nil {
			return model.Result{}, errMissing("memory limit")
		}
		limit := p.Limit()
		if limit <= 0 || limit == math.MaxInt64 {
			return model.TextResult("unlimited"), nil
		}
		return model.NumberResult(float64(limit), "B"), nil
	})

	if p.Host != nil {
		type host struct{ used, total model.Result }
		hm := guard("host-memory", host{na, na}, func() (host, error) {
			total, used, err := p.Host.VirtualMemory(ctx)
			if err != nil {
				return host{}, err
			}
			return host{
				used:  model.NumberResult(float64(used), "B"),
				total: model.NumberResult(float64(total), "B"),
			}, nil
		})
		out.HostUsed, out.HostTotal = hm.used, hm.total
	}
	return out
}
