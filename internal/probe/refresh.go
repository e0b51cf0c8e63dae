package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// ErrTickSourceClosed is returned when a tick source stops before enough
// ticks were collected.
var ErrTickSourceClosed = errors.New("tick source closed")

// TickSource delivers paint-tick timestamps. The channel is closed when the
// source stops; it must also stop delivering once ctx is done.
type TickSource interface {
	Subscribe(ctx context.Context) (<-chan time.Time, error)
}

// RefreshHinter reports a platform-provided refresh rate, if one exists.
type RefreshHinter interface {
	RefreshHint() (hz int, ok bool)
}

// StaticHint is a fixed refresh rate, typically from configuration. Zero
// means no hint.
type StaticHint int

func (h StaticHint) RefreshHint() (int, bool) {
	return int(h), h > 0
}

// RefreshEstimator estimates the display refresh rate in Hz.
type RefreshEstimator struct {
	Hints   []RefreshHinter
	Ticks   TickSource
	Samples int
}

// NewRefreshEstimator returns an estimator that collects samples ticks from
// ticks whenever no hint is available.
func NewRefreshEstimator(ticks TickSource, samples int, hints ...RefreshHinter) *RefreshEstimator {
	if samples < 2 {
		samples = model.DefaultRefreshSamples
	}
	return &RefreshEstimator{Hints: hints, Ticks: ticks, Samples: samples}
}

// Estimate returns the refresh rate in Hz or the unavailable sentinel. A
// hint short-circuits sampling. Each call starts collection from zero.
func (e *RefreshEstimator) Estimate(ctx context.Context) model.Result {
	return guard("refresh-rate", model.UnavailableResult(""), func() (model.Result, error) {
		for _, h := range e.Hints {
			if h == nil {
				continue
			}
			if hz, ok := h.RefreshHint(); ok {
				return model.NumberResult(float64(hz), "Hz"), nil
			}
		}
		if e.Ticks == nil {
			return model.Result{}, errMissing("tick source")
		}

		stamps, err := e.collect(ctx)
		if err != nil {
			return model.Result{}, err
		}
		hz, err := EstimateHz(stamps)
		if err != nil {
			return model.Result{}, err
		}
		return model.NumberResult(float64(hz), "Hz"), nil
	})
}

func (e *RefreshEstimator) collect(ctx context.Context) ([]time.Time, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := e.Ticks.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	stamps := make([]time.Time, 0, e.Samples)
	for len(stamps) < e.Samples {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ts, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("%w after %d ticks", ErrTickSourceClosed, len(stamps))
			}
			stamps = append(stamps, ts)
		}
	}
	return stamps, nil
}

// EstimateHz inverts the mean interval between consecutive timestamps:
// round(1000ms / mean delta).
func EstimateHz(stamps []time.Time) (int, error) {
	if len(stamps) < 2 {
		return 0, fmt.Errorf("need at least 2 ticks, got %d", len(stamps))
	}

	var sum float64
	for i := 1; i < len(stamps); i++ {
		sum += float64(stamps[i].Sub(stamps[i-1])) / float64(time.Millisecond)
	}
	mean := sum / float64(len(stamps)-1)
	if mean <= 0 {
		return 0, fmt.Errorf("non-positive mean tick interval %.3fms", mean)
	}
	return int(math.Round(1000 / mean)), nil
}

// TickerSource emits ticks from a time.Ticker at a fixed frame interval.
type TickerSource struct {
	Interval time.Duration
}

func (s TickerSource) Subscribe(ctx context.Context) (<-chan time.Time, error) {
	if s.Interval <= 0 {
		return nil, fmt.Errorf("invalid frame interval %s", s.Interval)
	}

	out := make(chan time.Time)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
