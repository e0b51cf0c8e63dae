package model

import "time"

// Metric names emitted for numeric results. They key the history table and
// the exported gauges.
const (
	MetricCPUCores          = "cpu.cores"
	MetricCPUThreads        = "cpu.threads"
	MetricCPUScore          = "cpu.score"
	MetricHeapUsed          = "memory.heap_used"
	MetricHeapTotal         = "memory.heap_total"
	MetricHostMemUsed       = "memory.host_used"
	MetricScreenRefreshRate = "screen.refresh_rate"
	MetricExtensionCount    = "extensions.count"
)

// MetricSample represents one numeric datapoint derived from a Sample.
type MetricSample struct {
	Timestamp time.Time
	Name      string
	Value     float64
	Unit      string
}

// Metrics flattens the available numeric results of s. Unavailable results
// are skipped.
func (s Sample) Metrics() []MetricSample {
	fields := []struct {
		name string
		r    Result
	}{
		{MetricCPUCores, s.CPU.Cores},
		{MetricCPUThreads, s.CPU.Threads},
		{MetricCPUScore, s.CPU.Score},
		{MetricHeapUsed, s.Memory.HeapUsed},
		{MetricHeapTotal, s.Memory.HeapTotal},
		{MetricHostMemUsed, s.Memory.HostUsed},
		{MetricScreenRefreshRate, s.Screen.RefreshRate},
		{MetricExtensionCount, s.Extensions.Count},
	}

	out := make([]MetricSample, 0, len(fields))
	for _, f := range fields {
		if f.r.Kind != KindNumber {
			continue
		}
		out = append(out, MetricSample{
			Timestamp: s.At,
			Name:      f.name,
			Value:     f.r.Number,
			Unit:      f.r.Unit,
		})
	}
	return out
}
