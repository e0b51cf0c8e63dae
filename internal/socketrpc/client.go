package socketrpc

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// Client implements model.ReadAPI over the daemon's socket.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *jsoniter.Encoder
}

// Dial connects to the socket RPC server at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: codec.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(method string, params any, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	paramsData, err := codec.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}
	req := Request{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: paramsData}

	c.conn.SetDeadline(time.Now().Add(10 * time.Second))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return errors.New("socketrpc: connection closed")
	}

	var resp Response
	if err := codec.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.Error != nil {
		switch resp.Error.Code {
		case codeNoBoard:
			return model.ErrNoBoard
		case codeNoHistory:
			return model.ErrHistoryDisabled
		}
		return resp.Error
	}
	if dest != nil {
		if err := codec.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) CurrentBoard() (model.Board, error) {
	var result model.Board
	err := c.call("Board", nil, &result)
	return result, err
}

func (c *Client) History(metric string, limit int) ([]model.HistoryPoint, error) {
	var result []model.HistoryPoint
	err := c.call("History", map[string]any{"Metric": metric, "Limit": limit}, &result)
	return result, err
}

func (c *Client) ListMetrics() ([]string, error) {
	var result []string
	err := c.call("ListMetrics", nil, &result)
	return result, err
}

func (c *Client) Health() (HealthStatus, error) {
	var result HealthStatus
	err := c.call("Health", nil, &result)
	return result, err
}
