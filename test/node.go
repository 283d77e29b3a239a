package test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Node serves a Chain over the graphene JSON-RPC API, both as plain HTTP POST and as websocket.
type Node struct {
	Chain *Chain

	// FailRequests makes that many upcoming requests answer with a node error.
	FailRequests atomic.Int64
	Requests     atomic.Int64

	upgrader websocket.Upgrader
}

type nodeRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type nodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type nodeResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *nodeError      `json:"error,omitempty"`
}

func NewNode(chain *Chain) *Node {
	return &Node{Chain: chain}
}

// Start runs the node on a local test server. Callers close the server.
func (n *Node) Start() *httptest.Server {
	return httptest.NewServer(n)
}

// WebsocketURL turns a test server URL into its websocket form.
func WebsocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		n.serveWebsocket(w, r)
		return
	}

	var req nodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(n.handle(r.Context(), req))
}

func (n *Node) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req nodeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		// interleave a subscription notice to make sure clients skip it
		if err := conn.WriteJSON(map[string]any{"method": "notice", "params": []any{1, []any{}}}); err != nil {
			return
		}
		if err := conn.WriteJSON(n.handle(r.Context(), req)); err != nil {
			return
		}
	}
}

func (n *Node) handle(ctx context.Context, req nodeRequest) nodeResponse {
	n.Requests.Add(1)
	resp := nodeResponse{JSONRPC: "2.0", ID: req.ID}

	if n.FailRequests.Load() > 0 {
		n.FailRequests.Add(-1)
		resp.Error = &nodeError{Code: 1, Message: "Too many requests"}
		return resp
	}

	if req.Method != "call" || len(req.Params) != 3 {
		resp.Error = &nodeError{Code: -32601, Message: "method not found"}
		return resp
	}

	var api, method string
	var args []int64
	_ = json.Unmarshal(req.Params[0], &api)
	_ = json.Unmarshal(req.Params[1], &method)
	_ = json.Unmarshal(req.Params[2], &args)

	if api != "database" {
		resp.Error = &nodeError{Code: 1, Message: "api not found: " + api}
		return resp
	}

	switch method {
	case "get_dynamic_global_properties":
		head, err := n.Chain.CurrentHeight(ctx)
		if err != nil {
			resp.Error = &nodeError{Code: 1, Message: err.Error()}
			return resp
		}
		props := map[string]any{
			"id":                          "2.1.0",
			"head_block_number":           head,
			"last_irreversible_block_num": head,
		}
		if head > 0 {
			props["time"] = n.Chain.Blocks[head-1].Timestamp
		}
		resp.Result = props
	case "get_block_header", "get_block":
		if len(args) != 1 {
			resp.Error = &nodeError{Code: 1, Message: "expected one block number"}
			return resp
		}
		block, err := n.Chain.Block(ctx, args[0])
		if errors.Is(err, ErrNoSuchBlock) {
			resp.Result = nil
			return resp
		}
		if err != nil {
			resp.Error = &nodeError{Code: 1, Message: err.Error()}
			return resp
		}
		if method == "get_block_header" {
			resp.Result = map[string]any{
				"previous":  block.Previous,
				"timestamp": block.Timestamp,
				"witness":   block.Witness,
			}
		} else {
			block.Height = 0
			resp.Result = block
		}
	default:
		resp.Error = &nodeError{Code: 1, Message: "method not found: " + method}
	}
	return resp
}
