package probe

import (
	"context"
	"errors"
	"math"
	"runtime"
	"testing"
)

type fakeHostMemory struct {
	total, used uint64
	err         error
}

func (f fakeHostMemory) VirtualMemory(context.Context) (uint64, uint64, error) {
	return f.total, f.used, f.err
}

func TestMemoryProbe_Figures(t *testing.T) {
	t.Parallel()

	p := &MemoryProbe{
		Host: fakeHostMemory{total: 16 << 30, used: 4 << 30},
		ReadStats: func(ms *runtime.MemStats) {
			ms.HeapAlloc = 12 << 20
			ms.HeapSys = 32 << 20
		},
		Limit: func() int64 { return 512 << 20 },
	}

	got := p.Probe(context.Background())
	if got.HeapUsed.Number != 12<<20 || got.HeapTotal.Number != 32<<20 {
		t.Fatalf("heap = %v / %v", got.HeapUsed, got.HeapTotal)
	}
	if got.HeapLimit.Number != 512<<20 {
		t.Fatalf("limit = %v", got.HeapLimit)
	}
	if got.HostUsed.Number != 4<<30 || got.HostTotal.Number != 16<<30 {
		t.Fatalf("host = %v / %v", got.HostUsed, got.HostTotal)
	}
}

func TestMemoryProbe_Degrades(t *testing.T) {
	t.Parallel()

	p := &MemoryProbe{
		Host:      fakeHostMemory{err: errors.New("permission denied")},
		ReadStats: func(*runtime.MemStats) { panic("stats unavailable") },
		Limit:     func() int64 { return math.MaxInt64 },
	}

	got := p.Probe(context.Background())
	if got.HeapUsed.Available() || got.HeapTotal.Available() {
		t.Fatalf("heap = %v / %v, want unavailable", got.HeapUsed, got.HeapTotal)
	}
	if got.HostUsed.Available() {
		t.Fatalf("host = %v, want unavailable", got.HostUsed)
	}
	if got.HeapLimit.String() != "unlimited" {
		t.Fatalf("limit = %q, want unlimited", got.HeapLimit.String())
	}
}

func TestMemoryProbe_Runtime(t *testing.T) {
	t.Parallel()

	got := NewMemoryProbe(nil).Probe(context.Background())
	if !got.HeapUsed.Available() || got.HeapUsed.Number <= 0 {
		t.Fatalf("heap used = %v", got.HeapUsed)
	}
	if got.HostUsed.Available() {
		t.Fatal("host memory should be unavailable without a source")
	}
}
