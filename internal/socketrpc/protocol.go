package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes the published board and the metric history
// over a Unix domain socket, one JSON object per line.
//
//   Method         Params                          Result
//   ───────────    ─────────────────────────────   ──────────────────────
//   Board          (none)                          model.Board
//   History        {Metric: string, Limit: int}    []model.HistoryPoint
//   ListMetrics    (none)                          []string
//   Health         (none)                          HealthStatus
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (query failure)
//   -32001  No board published yet
//   -32002  History disabled

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
	codeNoBoard        = -32001
	codeNoHistory      = -32002
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// HealthStatus is the Health result.
type HealthStatus struct {
	Status         string        `json:"status"`
	Uptime         time.Duration `json:"uptime"`
	Cycle          uint64        `json:"cycle"`
	HistoryEnabled bool          `json:"history_enabled"`
}

// DefaultSocketPath prefers $XDG_RUNTIME_DIR/hostdeck/hostdeck.sock and falls
// back to ~/.local/state/hostdeck/hostdeck.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "hostdeck", "hostdeck.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/hostdeck.sock"
	}
	return filepath.Join(home, ".local", "state", "hostdeck", "hostdeck.sock")
}
