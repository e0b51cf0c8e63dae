package otlpexport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	collectorpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

type fakeCollector struct {
	collectorpb.UnimplementedMetricsServiceServer

	mu       sync.Mutex
	requests []*collectorpb.ExportMetricsServiceRequest
}

func (f *fakeCollector) Export(_ context.Context, req *collectorpb.ExportMetricsServiceRequest) (*collectorpb.ExportMetricsServiceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &collectorpb.ExportMetricsServiceResponse{}, nil
}

func (f *fakeCollector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newBufconnExporter(t *testing.T, cfg Config) (*Exporter, *fakeCollector) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	fc := &fakeCollector{}
	collectorpb.RegisterMetricsServiceServer(srv, fc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	cfg.Endpoint = "passthrough:///bufnet"
	exp, err := New(cfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return exp, fc
}

func testSample() model.Sample {
	return model.Sample{
		At:     time.Unix(1700000000, 0),
		CPU:    model.CPUSample{Cores: model.NumberResult(8, ""), Score: model.NumberResult(55, "")},
		Memory: model.MemorySample{HeapUsed: model.NumberResult(4096, "B")},
	}
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	req := BuildRequest("hostdeck", "box", 4, testSample().Metrics())

	rm := req.GetResourceMetrics()
	if len(rm) != 1 {
		t.Fatalf("resource metrics = %d, want 1", len(rm))
	}
	attrs := rm[0].GetResource().GetAttributes()
	if len(attrs) != 2 || attrs[0].GetValue().GetStringValue() != "hostdeck" {
		t.Fatalf("resource attrs = %v", attrs)
	}

	metrics := rm[0].GetScopeMetrics()[0].GetMetrics()
	if len(metrics) != 3 {
		t.Fatalf("metrics = %d, want 3", len(metrics))
	}
	heap := metrics[2]
	if heap.GetName() != "hostdeck.memory.heap_used" || heap.GetUnit() != "By" {
		t.Fatalf("heap metric = %s [%s]", heap.GetName(), heap.GetUnit())
	}
	dp := heap.GetGauge().GetDataPoints()[0]
	if dp.GetAsDouble() != 4096 || dp.GetTimeUnixNano() != uint64(time.Unix(1700000000, 0).UnixNano()) {
		t.Fatalf("data point = %v", dp)
	}
	if dp.GetAttributes()[0].GetValue().GetIntValue() != 4 {
		t.Fatalf("cycle attribute = %v", dp.GetAttributes())
	}
}

func TestPushSendsLatestCycleOnce(t *testing.T) {
	t.Parallel()

	exp, fc := newBufconnExporter(t, Config{})
	ctx := context.Background()

	if err := exp.Push(ctx); err != nil {
		t.Fatalf("Push before any cycle: %v", err)
	}
	if fc.count() != 0 {
		t.Fatal("nothing should be exported before the first cycle")
	}

	if err := exp.Consume(ctx, testSample(), model.Board{Cycle: 1}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := exp.Push(ctx); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if fc.count() != 1 {
		t.Fatalf("exports = %d, want 1", fc.count())
	}

	if err := exp.Consume(ctx, testSample(), model.Board{Cycle: 2}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := exp.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if fc.count() != 2 {
		t.Fatalf("exports after shutdown = %d, want 2", fc.count())
	}
}

func TestStartPushesOnInterval(t *testing.T) {
	t.Parallel()

	exp, fc := newBufconnExporter(t, Config{Interval: 10 * time.Millisecond})
	_ = exp.Consume(context.Background(), testSample(), model.Board{Cycle: 1})
	exp.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for fc.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no export within deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := exp.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
