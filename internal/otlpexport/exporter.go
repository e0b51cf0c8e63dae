// Package otlpexport pushes the numeric results of the latest cycle to an
// OTLP/gRPC collector as gauges.
package otlpexport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	collectorpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const (
	defaultInterval    = 15 * time.Second
	defaultTimeout     = 5 * time.Second
	defaultServiceName = "hostdeck"
	scopeName          = "github.com/tinytelemetry/hostdeck"
	metricPrefix       = "hostdeck."
)

// ucumUnits maps display units to their UCUM spelling.
var ucumUnits = map[string]string{
	"B":  "By",
	"Hz": "Hz",
	"px": "{pixel}",
}

// Config configures the exporter.
type Config struct {
	Endpoint    string
	Interval    time.Duration
	Timeout     time.Duration
	ServiceName string
}

// Exporter keeps the metrics of the latest cycle and pushes them on an
// interval. It implements the render sink contract through Consume.
type Exporter struct {
	cfg    Config
	conn   *grpc.ClientConn
	client collectorpb.MetricsServiceClient
	host   string

	mu      sync.Mutex
	cycle   uint64
	latest  []model.MetricSample
	pushed  uint64
	started bool

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New creates an exporter for cfg.Endpoint. The connection is plaintext;
// extra dial options are appended.
func New(cfg Config, opts ...grpc.DialOption) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("otlp: endpoint is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(cfg.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp: dial %s: %w", cfg.Endpoint, err)
	}

	host, _ := os.Hostname()
	done := make(chan struct{})
	close(done)
	return &Exporter{
		cfg:    cfg,
		conn:   conn,
		client: collectorpb.NewMetricsServiceClient(conn),
		host:   host,
		done:   done,
	}, nil
}

// Consume records the metrics of a published cycle for the next push.
func (e *Exporter) Consume(_ context.Context, sample model.Sample, board model.Board) error {
	metrics := sample.Metrics()
	e.mu.Lock()
	e.cycle = board.Cycle
	e.latest = metrics
	e.mu.Unlock()
	return nil
}

// Start pushes on every interval until ctx is canceled or Shutdown is called.
func (e *Exporter) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.loop(ctx)
}

func (e *Exporter) loop(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.Push(ctx); err != nil && ctx.Err() == nil {
				log.Printf("otlp: push failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Push sends the latest cycle once. Cycles already pushed are skipped.
func (e *Exporter) Push(ctx context.Context) error {
	e.mu.Lock()
	cycle, metrics := e.cycle, e.latest
	if cycle == 0 || cycle == e.pushed || len(metrics) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	req := BuildRequest(e.cfg.ServiceName, e.host, cycle, metrics)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.Export(ctx, req)
	if err != nil {
		return fmt.Errorf("export cycle %d: %w", cycle, err)
	}
	if ps := resp.GetPartialSuccess(); ps.GetRejectedDataPoints() > 0 {
		log.Printf("otlp: collector rejected %d data points: %s", ps.GetRejectedDataPoints(), ps.GetErrorMessage())
	}

	e.mu.Lock()
	if cycle > e.pushed {
		e.pushed = cycle
	}
	e.mu.Unlock()

	log.Printf("otlp: exported cycle %d (%d metrics, %d bytes)", cycle, len(metrics), proto.Size(req))
	return nil
}

// Shutdown stops the loop, makes a final push and closes the connection.
func (e *Exporter) Shutdown() error {
	var err error
	e.stopOnce.Do(func() {
		e.mu.Lock()
		cancel, done := e.cancel, e.done
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		<-done

		if perr := e.Push(context.Background()); perr != nil {
			log.Printf("otlp: final push failed: %v", perr)
		}
		err = e.conn.Close()
	})
	return err
}

// BuildRequest converts one cycle of metrics into an export request with a
// gauge per metric.
func BuildRequest(service, host string, cycle uint64, metrics []model.MetricSample) *collectorpb.ExportMetricsServiceRequest {
	out := make([]*metricspb.Metric, 0, len(metrics))
	for _, m := range metrics {
		unit, ok := ucumUnits[m.Unit]
		if !ok {
			unit = m.Unit
		}
		out = append(out, &metricspb.Metric{
			Name: metricPrefix + m.Name,
			Unit: unit,
			Data: &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{
				DataPoints: []*metricspb.NumberDataPoint{{
					TimeUnixNano: uint64(m.Timestamp.UnixNano()),
					Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: m.Value},
					Attributes:   []*commonpb.KeyValue{intAttr("hostdeck.cycle", int64(cycle))},
				}},
			}},
		})
	}

	resAttrs := []*commonpb.KeyValue{stringAttr("service.name", service)}
	if host != "" {
		resAttrs = append(resAttrs, stringAttr("host.name", host))
	}

	return &collectorpb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{{
			Resource: &resourcepb.Resource{Attributes: resAttrs},
			ScopeMetrics: []*metricspb.ScopeMetrics{{
				Scope:   &commonpb.InstrumentationScope{Name: scopeName},
				Metrics: out,
			}},
		}},
	}
}

func stringAttr(k, v string) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: k, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v}}}
}

func intAttr(k string, v int64) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: k, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v}}}
}
