package probe

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

func TestParseIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ident, platform         string
		vendor, model, wantArch string
	}{
		{"GenuineIntel Intel(R) Core(TM) i7-9750H CPU @ 2.60GHz", "amd64", "Intel", "Core i7-9750H", "64-bit"},
		{"AuthenticAMD AMD Ryzen 7 5800X 8-Core Processor", "amd64", "AMD", "Ryzen 7", "64-bit"},
		{"Apple M2 Pro", "arm64", "Apple", "M2 Pro", "64-bit"},
		{"ARM Cortex-A72", "arm", "Unknown", "Unknown", "32-bit"},
		{"intel", "386", "Intel", "Unknown", "32-bit"},
		{"", "", "Unknown", "Unknown", "32-bit"},
	}

	for _, tt := range tests {
		vendor, mdl, arch := ParseIdentity(tt.ident, tt.platform)
		if vendor != tt.vendor || mdl != tt.model || arch != tt.wantArch {
			t.Errorf("ParseIdentity(%q, %q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.ident, tt.platform, vendor, mdl, arch, tt.vendor, tt.model, tt.wantArch)
		}
	}
}

type fakeCPUSource struct {
	ident      string
	identErr   error
	platform   string
	cores      int
	threadsErr error
	panics     bool
}

func (f fakeCPUSource) Identification(context.Context) (string, error) {
	if f.panics {
		panic("cpuinfo unreadable")
	}
	return f.ident, f.identErr
}

func (f fakeCPUSource) Platform() string { return f.platform }

func (f fakeCPUSource) Concurrency(_ context.Context, logical bool) (int, error) {
	if logical {
		if f.threadsErr != nil {
			return 0, f.threadsErr
		}
		return f.cores * 2, nil
	}
	return f.cores, nil
}

func TestIdentify_PartialFailure(t *testing.T) {
	t.Parallel()

	p := &IdentityProbe{Source: fakeCPUSource{
		ident:      "GenuineIntel Intel(R) Xeon(R) Gold 6248",
		platform:   "amd64",
		cores:      8,
		threadsErr: errors.New("unsupported"),
	}}

	got := p.Identify(context.Background())
	if got.Vendor != "Intel" || got.Model != "Xeon Gold" || got.Architecture != "64-bit" {
		t.Fatalf("identity = %s/%s/%s", got.Vendor, got.Model, got.Architecture)
	}
	if got.Cores.Int() != 8 {
		t.Fatalf("cores = %v, want 8", got.Cores)
	}
	if got.Threads.Available() {
		t.Fatalf("threads = %v, want unavailable", got.Threads)
	}
}

func TestIdentify_MissingConcurrencyHint(t *testing.T) {
	t.Parallel()

	p := &IdentityProbe{Source: fakeCPUSource{ident: "AMD EPYC", platform: "amd64", cores: 0}}
	got := p.Identify(context.Background())
	if got.Cores.Available() {
		t.Fatalf("cores = %v, want unavailable", got.Cores)
	}
	if got.Vendor != "AMD" {
		t.Fatalf("vendor = %q, want AMD", got.Vendor)
	}
}

func TestIdentify_SourceFailure(t *testing.T) {
	t.Parallel()

	for _, src := range []fakeCPUSource{
		{identErr: errors.New("no cpuinfo"), cores: 4},
		{panics: true, cores: 4},
	} {
		got := (&IdentityProbe{Source: src}).Identify(context.Background())
		if got.Vendor != model.Unavailable || got.Model != model.Unavailable {
			t.Fatalf("identity = %s/%s, want unavailable", got.Vendor, got.Model)
		}
		if got.Cores.Int() != 4 {
			t.Fatalf("cores = %v, want 4", got.Cores)
		}
	}
}

func TestIdentify_FeaturesAreIndependent(t *testing.T) {
	t.Parallel()

	p := &IdentityProbe{
		Source: fakeCPUSource{ident: "Apple M1", platform: "arm64", cores: 8},
		Capabilities: []Capability{
			{Name: "Parallel execution", Present: func() bool { return true }},
			{Name: "Shared memory", Present: func() bool { panic("probe failed") }},
			{Name: "Wake lock", Present: func() bool { return false }},
			{Name: "Parallel execution", Present: func() bool { return true }},
			{Name: "Background workers", Present: func() bool { return true }},
		},
	}

	got := p.Identify(context.Background()).Features
	want := []string{"Parallel execution", "Background workers"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("features = %v, want %v", got, want)
	}
}

func TestIdentify_NilSource(t *testing.T) {
	t.Parallel()

	got := (&IdentityProbe{}).Identify(context.Background())
	if got.Vendor != model.Unavailable || got.Cores.Available() {
		t.Fatalf("identity = %+v, want all unavailable", got)
	}
	if got.Features == nil {
		t.Fatal("features should be an empty list, not nil")
	}
}
