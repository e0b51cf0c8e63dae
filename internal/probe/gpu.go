package probe

import (
	"context"
	"errors"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// ErrNoGraphicsContext is returned by a GraphicsProvider with no usable device.
var ErrNoGraphicsContext = errors.New("no graphics context")

// GraphicsContext is an opened graphics device.
type GraphicsContext interface {
	// DebugInfo returns vendor and renderer names; ok is false when the
	// device does not expose them.
	DebugInfo() (vendor, renderer string, ok bool)
}

// GraphicsProvider opens a graphics context.
type GraphicsProvider interface {
	OpenContext(ctx context.Context) (GraphicsContext, error)
}

// GPUProbe reports the renderer through a three-tier fallback.
type GPUProbe struct {
	Provider GraphicsProvider
}

// Probe returns GPUUnsupported without a context, GPUUnavailable without
// debug info, and GPUInfo otherwise.
func (p *GPUProbe) Probe(ctx context.Context) model.GPUResult {
	unsupported := model.GPUResult{Kind: model.GPUUnsupported}
	if p.Provider == nil {
		return unsupported
	}

	gctx := guard("gpu-context", GraphicsContext(nil), func() (GraphicsContext, error) {
		return p.Provider.OpenContext(ctx)
	})
	if gctx == nil {
		return unsupported
	}

	return guard("gpu-debug-info", model.GPUResult{Kind: model.GPUUnavailable}, func() (model.GPUResult, error) {
		vendor, renderer, ok := gctx.DebugInfo()
		if !ok {
			return model.GPUResult{Kind: model.GPUUnavailable}, nil
		}
		return model.GPUResult{Kind: model.GPUInfo, Vendor: vendor, Renderer: renderer}, nil
	})
}
