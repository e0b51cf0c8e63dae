package socketrpc

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

const (
	scannerInitBufSize  = 64 * 1024
	scannerMaxTokenSize = 4 * 1024 * 1024
)

// Server exposes the board and history over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath string
	boards     model.BoardReader
	history    model.HistoryQuerier
	startTime  time.Time
	listener   net.Listener
	wg         sync.WaitGroup
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a socket RPC server. history may be nil.
func NewServer(socketPath string, boards model.BoardReader, history model.HistoryQuerier) *Server {
	return &Server{
		socketPath: socketPath,
		boards:     boards,
		history:    history,
		startTime:  time.Now(),
		quit:       make(chan struct{}),
	}
}

// Start listens on the socket, replacing a stale socket file left by a dead server.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another server is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("socketrpc: listening on %s", s.socketPath)
	return nil
}

// Stop closes the listener, waits for connections to drain and removes the socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("socketrpc: accept error: %v", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := codec.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := codec.Unmarshal(scanner.Bytes(), &req); err != nil {
			encoder.Encode(Response{JSONRPC: "2.0", Error: &RPCError{Code: codeParseError, Message: "parse error"}})
			continue
		}

		if err := encoder.Encode(s.dispatch(req)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v any, err error) Response {
		switch {
		case errors.Is(err, model.ErrNoBoard):
			resp.Error = &RPCError{Code: codeNoBoard, Message: err.Error()}
			return resp
		case errors.Is(err, model.ErrHistoryDisabled):
			resp.Error = &RPCError{Code: codeNoHistory, Message: err.Error()}
			return resp
		}
		if err != nil {
			resp.Error = &RPCError{Code: codeApplication, Message: err.Error()}
			return resp
		}
		data, merr := codec.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: codeInternal, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	switch req.Method {
	case "Board":
		return marshalResult(s.boards.CurrentBoard())

	case "History":
		var p struct {
			Metric string
			Limit  int
		}
		err := codec.Unmarshal(req.Params, &p)
		switch {
		case err != nil:
		case p.Metric == "":
			err = errors.New("metric is required")
		case p.Limit < 0 || p.Limit > model.MaxHistoryLimit:
			err = fmt.Errorf("limit must be between 0 and %d", model.MaxHistoryLimit)
		}
		if err != nil {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
			return resp
		}
		if s.history == nil {
			return marshalResult(nil, model.ErrHistoryDisabled)
		}
		return marshalResult(s.history.History(p.Metric, p.Limit))

	case "ListMetrics":
		if s.history == nil {
			return marshalResult(nil, model.ErrHistoryDisabled)
		}
		return marshalResult(s.history.ListMetrics())

	case "Health":
		return marshalResult(s.health(), nil)

	default:
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}

func (s *Server) health() HealthStatus {
	h := HealthStatus{
		Status:         "ok",
		Uptime:         time.Since(s.startTime),
		HistoryEnabled: s.history != nil,
	}
	if b, err := s.boards.CurrentBoard(); err == nil {
		h.Cycle = b.Cycle
	} else {
		h.Status = "starting"
	}
	return h
}
