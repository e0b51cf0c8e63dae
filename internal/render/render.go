// Package render drives the sampling cycle: collect a sample, build the
// cards, publish the board and notify sinks, then wait before the next
// cycle.
package render

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tinytelemetry/hostdeck/internal/cards"
	"github.com/tinytelemetry/hostdeck/internal/model"
)

// Collector produces one Sample per call.
type Collector interface {
	Collect(ctx context.Context) (model.Sample, error)
}

// Sink receives every published board together with the sample it was
// built from.
type Sink interface {
	Consume(ctx context.Context, sample model.Sample, board model.Board) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sample model.Sample, board model.Board) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, sample model.Sample, board model.Board) error {
	return f(ctx, sample, board)
}

// HistorySink writes the numeric results of each cycle to w.
func HistorySink(w model.SampleWriter) Sink {
	return SinkFunc(func(_ context.Context, s model.Sample, b model.Board) error {
		return w.InsertSamples(b.Cycle, s.Metrics())
	})
}

// Config configures a Handle.
type Config struct {
	Collector Collector
	// Delay is the pause between the end of one cycle and the start of
	// the next.
	Delay time.Duration
	Sinks []Sink
	// Build overrides card assembly. Nil means cards.Build.
	Build func(model.Sample) []model.Card
}

// Handle owns a render loop. The zero value is not usable; use New or Start.
type Handle struct {
	collector Collector
	delay     time.Duration
	sinks     []Sink
	build     func(model.Sample) []model.Card

	cycleMu sync.Mutex
	cycle   uint64

	mu        sync.RWMutex
	board     model.Board
	published bool

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New returns a Handle that has not been started. It is enough for RunOnce.
func New(cfg Config) *Handle {
	delay := cfg.Delay
	if delay <= 0 {
		delay = model.DefaultCycleDelay
	}
	build := cfg.Build
	if build == nil {
		build = cards.Build
	}
	done := make(chan struct{})
	close(done)
	return &Handle{
		collector: cfg.Collector,
		delay:     delay,
		sinks:     cfg.Sinks,
		build:     build,
		done:      done,
	}
}

// Start runs the first cycle immediately and keeps cycling until ctx is
// canceled or Stop is called.
func Start(ctx context.Context, cfg Config) *Handle {
	h := New(cfg)
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go h.run(ctx)
	return h
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := h.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("render: %v", err)
		}
		timer.Reset(h.delay)
	}
}

// Stop cancels the loop and waits for the in-flight cycle to return.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// CurrentBoard returns the last published board.
func (h *Handle) CurrentBoard() (model.Board, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.published {
		return model.Board{}, model.ErrNoBoard
	}
	return h.board, nil
}

// RunOnce executes a single cycle synchronously. On error or panic nothing
// is published and the previous board stays current.
func (h *Handle) RunOnce(ctx context.Context) (board model.Board, err error) {
	h.cycleMu.Lock()
	defer h.cycleMu.Unlock()

	h.cycle++
	n := h.cycle

	defer func() {
		if r := recover(); r != nil {
			board = model.Board{}
			err = fmt.Errorf("cycle %d panicked: %v", n, r)
		}
	}()

	if h.collector == nil {
		return model.Board{}, fmt.Errorf("cycle %d: no collector", n)
	}
	sample, err := h.collector.Collect(ctx)
	if err != nil {
		return model.Board{}, fmt.Errorf("cycle %d: collect: %w", n, err)
	}

	board = model.Board{
		Cycle:       n,
		GeneratedAt: sample.At,
		Cards:       h.build(sample),
	}
	if len(board.Cards) != len(cards.Order) {
		return model.Board{}, fmt.Errorf("cycle %d: assembled %d cards, want %d", n, len(board.Cards), len(cards.Order))
	}

	h.mu.Lock()
	h.board = board
	h.published = true
	h.mu.Unlock()

	h.notify(ctx, sample, board)
	return board, nil
}

func (h *Handle) notify(ctx context.Context, sample model.Sample, board model.Board) {
	for i, sink := range h.sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("render: sink %d panicked on cycle %d: %v", i, board.Cycle, r)
				}
			}()
			if err := sink.Consume(ctx, sample, board); err != nil {
				log.Printf("render: sink %d failed on cycle %d: %v", i, board.Cycle, err)
			}
		}()
	}
}
