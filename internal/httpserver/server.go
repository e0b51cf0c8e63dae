// Package httpserver serves the current board as a web page and a JSON API.
package httpserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

//go:embed templates/*.html
var templates embed.FS

// Server provides the dashboard page and read API.
type Server struct {
	addr      string
	boards    model.BoardReader
	history   model.HistoryQuerier
	refresh   time.Duration
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a server. history may be nil when history is disabled.
// refresh sets how often the page reloads itself.
func NewServer(addr string, boards model.BoardReader, history model.HistoryQuerier, refresh time.Duration) *Server {
	if addr == "" {
		addr = "127.0.0.1:3300"
	}
	if refresh <= 0 {
		refresh = model.DefaultCycleDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		boards:    boards,
		history:   history,
		refresh:   refresh,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	r.GET("/", s.handleIndex)
	r.GET("/api/cards", s.handleCards)
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/history", s.handleHistory)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the listen address, resolved once Start has run.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(c *gin.Context) {
	data := gin.H{
		"RefreshSeconds": int(math.Ceil(s.refresh.Seconds())),
		"Board":          nil,
	}
	if board, err := s.boards.CurrentBoard(); err == nil {
		data["Board"] = board
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) handleCards(c *gin.Context) {
	board, err := s.boards.CurrentBoard()
	if errors.Is(err, model.ErrNoBoard) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read board"})
		return
	}
	c.JSON(http.StatusOK, board)
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":          "ok",
		"uptime":          time.Since(s.startTime).String(),
		"history_enabled": s.history != nil,
	}
	if board, err := s.boards.CurrentBoard(); err == nil {
		body["cycle"] = board.Cycle
		body["generated_at"] = board.GeneratedAt
	} else {
		body["status"] = "starting"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": model.ErrHistoryDisabled.Error()})
		return
	}

	metric := c.Query("metric")
	if metric == "" {
		metrics, err := s.history.ListMetrics()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list metrics"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"metrics": metrics})
		return
	}

	limit := model.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > model.MaxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", model.MaxHistoryLimit)})
			return
		}
		limit = n
	}

	points, err := s.history.History(metric, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	if points == nil {
		points = []model.HistoryPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"metric": metric, "points": points})
}
