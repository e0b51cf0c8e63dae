package probe

import (
	"context"
	"math"
	"time"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const benchmarkIterations = 1_000_000

// Clock abstracts wall-clock reads for timing the benchmark.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// benchmarkSink keeps the workload result observable.
var benchmarkSink float64

// PerformanceProbe runs a fixed floating-point workload and maps its wall
// time to a 0-100 score. The number only compares runs on the same machine.
type PerformanceProbe struct {
	Clock      Clock
	Iterations int
}

// NewPerformanceProbe returns a probe using the system clock.
func NewPerformanceProbe() *PerformanceProbe {
	return &PerformanceProbe{Clock: SystemClock, Iterations: benchmarkIterations}
}

// Score runs the workload on the calling goroutine.
func (p *PerformanceProbe) Score(ctx context.Context) model.Result {
	return guard("cpu-performance", model.UnavailableResult(""), func() (model.Result, error) {
		if err := ctx.Err(); err != nil {
			return model.Result{}, err
		}
		clock := p.Clock
		if clock == nil {
			clock = SystemClock
		}
		n := p.Iterations
		if n <= 0 {
			n = benchmarkIterations
		}

		start := clock.Now()
		var sum float64
		for i := 0; i < n; i++ {
			f := float64(i)
			sum += math.Sqrt(f) * math.Sin(f)
		}
		benchmarkSink = sum
		elapsed := clock.Now().Sub(start)

		return model.NumberResult(float64(ScoreFromDuration(elapsed)), ""), nil
	})
}

// ScoreFromDuration computes min(100, round(10000 / duration_ms)).
func ScoreFromDuration(d time.Duration) int {
	ms := float64(d) / float64(time.Millisecond)
	if ms <= 0 {
		return 100
	}
	return min(100, int(math.Round(10000/ms)))
}
