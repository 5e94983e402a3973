package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603

	// Server-defined codes used by the ledger node.
	ErrRejectedCode = -32003
	ErrNotFoundCode = -32004
)

// maxResponseBytes caps a JSON-RPC response body.
const maxResponseBytes = 8 << 20

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// ErrTransport marks failures below the JSON-RPC layer: connection errors,
// non-200 statuses, unreadable bodies.
var ErrTransport = errors.New("json-rpc transport failure")

// ErrBadResponse marks a response that is not valid JSON-RPC or whose result
// does not decode into the caller's type.
var ErrBadResponse = errors.New("malformed json-rpc response")

// ParseRequest parses and validates a JSON-RPC request payload.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("parse error: %w", err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, fmt.Errorf("invalid request")
	}
	return req, nil
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
}

// WriteError writes a JSON-RPC error response.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Client calls a JSON-RPC 2.0 endpoint over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client. A nil httpClient uses http.DefaultClient.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

type clientResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
	ID      any             `json:"id"`
}

// Call invokes method with params and decodes the result into out, which may
// be nil. A JSON-RPC error object is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http status %d", ErrTransport, method, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: reading body: %v", ErrTransport, method, err)
	}

	var decoded clientResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, method, err)
	}
	if decoded.JSONRPC != "2.0" {
		return fmt.Errorf("%w: %s: unexpected version %q", ErrBadResponse, method, decoded.JSONRPC)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	if len(decoded.Result) == 0 {
		return fmt.Errorf("%w: %s: missing result", ErrBadResponse, method)
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%w: %s result: %v", ErrBadResponse, method, err)
	}
	return nil
}
