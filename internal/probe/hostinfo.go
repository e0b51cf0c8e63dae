package probe

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostInfo reads CPU and memory facts through gopsutil.
type HostInfo struct{}

// Identification joins the vendor id and model name of the first CPU.
func (HostInfo) Identification(ctx context.Context) (string, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errMissing("cpu info")
	}
	return strings.TrimSpace(infos[0].VendorID + " " + infos[0].ModelName), nil
}

// Platform returns the architecture the binary was built for.
func (HostInfo) Platform() string {
	return runtime.GOARCH
}

// Concurrency returns physical cores, or logical threads when logical is set.
func (HostInfo) Concurrency(ctx context.Context, logical bool) (int, error) {
	n, err := cpu.CountsWithContext(ctx, logical)
	if err != nil || n <= 0 {
		if logical {
			return runtime.NumCPU(), nil
		}
		return n, err
	}
	return n, nil
}

// VirtualMemory returns total and used host memory in bytes.
func (HostInfo) VirtualMemory(ctx context.Context) (total, used uint64, err error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Total, vm.Used, nil
}
