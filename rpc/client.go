package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrNullResult is returned when the node answers a call with a null result.
var ErrNullResult = errors.New("null result")

// Client issues graphene API calls. Implementations must be safe for concurrent use.
type Client interface {
	// Call invokes method on the named API (e.g. "database") and decodes the result into result.
	Call(ctx context.Context, api, method string, args []any, result any) error
	Close() error
}

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("node error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

func newRequest(id int64, api, method string, args []any) request {
	if args == nil {
		args = []any{}
	}
	return request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "call",
		Params:  []any{api, method, args},
	}
}

// NewClient picks a transport from the endpoint scheme.
func NewClient(ctx context.Context, endpoint string, timeout time.Duration) (Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPClient(endpoint, timeout), nil
	case "ws", "wss":
		return DialWebsocket(ctx, endpoint, timeout)
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

func unmarshalResponse(resp *response, expectedID int64, result any) error {
	if resp.Error != nil {
		return resp.Error
	}

	if err := validateAndVerifyID(resp.ID, expectedID); err != nil {
		return fmt.Errorf("wrong ID: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return ErrNullResult
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("error unmarshalling result: %w", err)
	}
	return nil
}

func validateAndVerifyID(raw json.RawMessage, expectedID int64) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("no ID")
	}
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	if id != expectedID {
		return fmt.Errorf("response ID (%d) does not match request ID (%d)", id, expectedID)
	}
	return nil
}

// parseID accepts numeric IDs and numeric strings, some public nodes echo either.
func parseID(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var s json.Number
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected numeric ID, but got: %s", raw)
	}
	id, err := s.Int64()
	if err != nil {
		return 0, fmt.Errorf("expected numeric ID, but got: %s", raw)
	}
	return id, nil
}
