package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const errorDisplayTTL = 30 * time.Second

// defaultMetrics seed the history deck until the store reports its own list.
var defaultMetrics = []string{model.MetricCPUScore, model.MetricHeapUsed}

// DashboardModel shows the latest board as a card grid above a history deck
// for one metric.
type DashboardModel struct {
	api          model.ReadAPI
	source       string
	keys         KeyMap
	interval     time.Duration
	historyLimit int

	width  int
	height int

	board    model.Board
	hasBoard bool

	metrics         []string
	metricIdx       int
	history         []model.HistoryPoint
	historyDisabled bool

	paused       bool
	tickInFlight bool
	lastTickAt   time.Time
	lastError    string
	lastErrorAt  time.Time

	modalStack []Modal
}

// NewDashboardModel creates a dashboard reading from api every interval.
// source names the backend in the status line ("Socket", "Local").
func NewDashboardModel(api model.ReadAPI, interval time.Duration, historyLimit int, source string) *DashboardModel {
	if interval <= 0 {
		interval = model.DefaultCycleDelay
	}
	if historyLimit <= 0 {
		historyLimit = model.DefaultHistoryLimit
	}
	return &DashboardModel{
		api:          api,
		source:       source,
		keys:         DefaultKeyMap(),
		interval:     interval,
		historyLimit: historyLimit,
		metrics:      append([]string(nil), defaultMetrics...),
	}
}

// TickMsg triggers a refresh.
type TickMsg time.Time

// SpinnerTickMsg re-renders the loading placeholder.
type SpinnerTickMsg struct{}

type dataLoadedMsg struct {
	board           model.Board
	hasBoard        bool
	metrics         []string
	history         []model.HistoryPoint
	historyMetric   string
	historyDisabled bool
	err             string
}

func (m *DashboardModel) Init() tea.Cmd {
	m.tickInFlight = true
	return tea.Batch(m.fetchCmd(), m.tickCmd(), spinnerTick())
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func spinnerTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return SpinnerTickMsg{} })
}

func (m *DashboardModel) currentMetric() string {
	if len(m.metrics) == 0 {
		return ""
	}
	return m.metrics[m.metricIdx%len(m.metrics)]
}

// fetchCmd reads the board, the metric list and the selected metric's
// history off the UI goroutine.
func (m *DashboardModel) fetchCmd() tea.Cmd {
	api, metric, limit := m.api, m.currentMetric(), m.historyLimit
	return func() tea.Msg {
		var msg dataLoadedMsg
		if api == nil {
			msg.err = "no data source"
			return msg
		}
		fail := func(err error) {
			if msg.err == "" {
				msg.err = err.Error()
			}
		}

		board, err := api.CurrentBoard()
		switch {
		case err == nil:
			msg.board, msg.hasBoard = board, true
		case !errors.Is(err, model.ErrNoBoard):
			fail(err)
		}

		metrics, err := api.ListMetrics()
		switch {
		case errors.Is(err, model.ErrHistoryDisabled):
			msg.historyDisabled = true
			return msg
		case err != nil:
			fail(err)
		default:
			msg.metrics = metrics
		}

		if metric != "" {
			points, err := api.History(metric, limit)
			if err != nil {
				fail(err)
			} else {
				msg.history, msg.historyMetric = points, metric
			}
		}
		return msg
	}
}

func (m *DashboardModel) applyData(msg dataLoadedMsg) {
	m.lastTickAt = time.Now()
	if msg.err != "" {
		m.lastError, m.lastErrorAt = msg.err, time.Now()
	}
	if msg.hasBoard {
		m.board, m.hasBoard = msg.board, true
	}
	m.historyDisabled = msg.historyDisabled
	if len(msg.metrics) > 0 {
		m.setMetrics(msg.metrics)
	}
	if msg.historyMetric != "" && msg.historyMetric == m.currentMetric() {
		m.history = msg.history
	}
}

// setMetrics replaces the metric list and keeps the current selection when
// it is still present.
func (m *DashboardModel) setMetrics(metrics []string) {
	current := m.currentMetric()
	m.metrics = append(m.metrics[:0:0], metrics...)
	m.metricIdx = 0
	for i, name := range m.metrics {
		if name == current {
			m.metricIdx = i
			return
		}
	}
	m.history = nil
}

func (m *DashboardModel) cycleMetric(delta int) {
	if len(m.metrics) == 0 {
		return
	}
	n := len(m.metrics)
	m.metricIdx = ((m.metricIdx+delta)%n + n) % n
	m.history = nil
}

// PushModal puts a modal on top of the stack unless one with the same ID is there.
func (m *DashboardModel) PushModal(modal Modal) {
	if top := m.TopModal(); top != nil && top.ID() == modal.ID() {
		return
	}
	m.modalStack = append(m.modalStack, modal)
}

// PopModal removes the top modal.
func (m *DashboardModel) PopModal() {
	if len(m.modalStack) > 0 {
		m.modalStack = m.modalStack[:len(m.modalStack)-1]
	}
}

// TopModal returns the modal receiving input, or nil.
func (m *DashboardModel) TopModal() Modal {
	if len(m.modalStack) == 0 {
		return nil
	}
	return m.modalStack[len(m.modalStack)-1]
}
