package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/hostdeck/internal/cards"
	"github.com/tinytelemetry/hostdeck/internal/duckdb"
	"github.com/tinytelemetry/hostdeck/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticBoards struct {
	board model.Board
	err   error
}

func (s staticBoards) CurrentBoard() (model.Board, error) { return s.board, s.err }

func testBoard() model.Board {
	return model.Board{
		Cycle:       7,
		GeneratedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Cards: cards.Build(model.Sample{
			CPU: model.CPUSample{Cores: model.NumberResult(8, "")},
			GPU: model.GPUResult{Kind: model.GPUUnsupported},
		}),
	}
}

func newTestServer(t *testing.T, boards model.BoardReader, withHistory bool) (http.Handler, *duckdb.Store) {
	t.Helper()
	var (
		store   *duckdb.Store
		history model.HistoryQuerier
	)
	if withHistory {
		var err error
		store, err = duckdb.NewStore("")
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		history = store
	}
	return NewServer("", boards, history, time.Second).Handler(), store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndexRendersCards(t *testing.T) {
	h, _ := newTestServer(t, staticBoards{board: testBoard()}, false)

	w := get(t, h, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"8 cores", "WebGL not supported", "🧩 Extensions", "cycle 7", `content="1"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Index(body, "CPU") > strings.Index(body, "Memory") {
		t.Error("CPU card should precede Memory card")
	}
}

func TestIndexBeforeFirstBoard(t *testing.T) {
	h, _ := newTestServer(t, staticBoards{err: model.ErrNoBoard}, false)

	w := get(t, h, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Collecting") {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestCardsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, staticBoards{board: testBoard()}, false)

	w := get(t, h, "/api/cards")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var board model.Board
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if board.Cycle != 7 || len(board.Cards) != 5 || board.Cards[0].Title != cards.TitleCPU {
		t.Fatalf("board = %+v", board)
	}
}

func TestCardsEndpoint_Errors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{model.ErrNoBoard, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h, _ := newTestServer(t, staticBoards{err: tc.err}, false)
		if w := get(t, h, "/api/cards"); w.Code != tc.want {
			t.Errorf("err %v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t, staticBoards{board: testBoard()}, true)

	w := get(t, h, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" || body["cycle"] != float64(7) || body["history_enabled"] != true {
		t.Fatalf("health = %v", body)
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	h, _ := newTestServer(t, staticBoards{board: testBoard()}, false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("POST status = %d, want 405 or 404", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h, store := newTestServer(t, staticBoards{board: testBoard()}, true)

	now := time.Now()
	for i := 1; i <= 3; i++ {
		err := store.InsertSamples(uint64(i), []model.MetricSample{
			{Timestamp: now.Add(time.Duration(i) * time.Second), Name: model.MetricCPUScore, Value: float64(i * 10)},
		})
		if err != nil {
			t.Fatalf("InsertSamples: %v", err)
		}
	}

	w := get(t, h, "/api/history?metric=cpu.score&limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Metric string               `json:"metric"`
		Points []model.HistoryPoint `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Points) != 2 || body.Points[0].Value != 20 || body.Points[1].Value != 30 {
		t.Fatalf("points = %+v", body.Points)
	}

	w = get(t, h, "/api/history")
	if !strings.Contains(w.Body.String(), model.MetricCPUScore) {
		t.Fatalf("metric list = %s", w.Body.String())
	}
}

func TestHistoryEndpoint_BadRequests(t *testing.T) {
	h, _ := newTestServer(t, staticBoards{board: testBoard()}, true)
	for _, q := range []string{"limit=0", "limit=abc", "limit=10001"} {
		if w := get(t, h, "/api/history?metric=cpu.score&"+q); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}

	disabled, _ := newTestServer(t, staticBoards{board: testBoard()}, false)
	if w := get(t, disabled, "/api/history?metric=cpu.score"); w.Code != http.StatusNotFound {
		t.Errorf("disabled history status = %d, want 404", w.Code)
	}
}

func TestStartStop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", staticBoards{board: testBoard()}, nil, time.Second)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
