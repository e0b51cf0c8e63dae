package model

import "errors"

var (
	// ErrNoBoard is returned before the first cycle has published a board.
	ErrNoBoard = errors.New("no board published yet")
	// ErrHistoryDisabled is returned by read surfaces running without a history store.
	ErrHistoryDisabled = errors.New("history is disabled")
)

// BoardReader provides the currently published board.
type BoardReader interface {
	CurrentBoard() (Board, error)
}

// HistoryQuerier provides read-only access to stored metric history.
type HistoryQuerier interface {
	History(metric string, limit int) ([]HistoryPoint, error)
	ListMetrics() ([]string, error)
}

// SampleWriter persists the numeric results of one cycle.
type SampleWriter interface {
	InsertSamples(cycle uint64, samples []MetricSample) error
}

// ReadAPI is the unified read contract for read surfaces (HTTP, socket RPC, TUI).
type ReadAPI interface {
	BoardReader
	HistoryQuerier
}
