package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/gorilla/websocket"
)

// WebsocketClient speaks JSON-RPC over a single websocket connection. Calls are
// serialized; a broken connection is dropped and redialed on the next call.
type WebsocketClient struct {
	Address string
	Timeout time.Duration
	Dialer  *websocket.Dialer

	accessMu sync.Mutex // guards conn replacement
	rwMu     sync.Mutex // one write+read exchange at a time
	conn     *websocket.Conn
	nextID   int64
}

func DialWebsocket(ctx context.Context, address string, timeout time.Duration) (*WebsocketClient, error) {
	c := &WebsocketClient{
		Address: address,
		Timeout: timeout,
		Dialer:  websocket.DefaultDialer,
	}
	if _, err := c.connection(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *WebsocketClient) connection(ctx context.Context) (*websocket.Conn, error) {
	c.accessMu.Lock()
	defer c.accessMu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn, _, err := c.Dialer.DialContext(dialCtx, c.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.Address, err)
	}
	c.conn = conn
	return conn, nil
}

func (c *WebsocketClient) drop(conn *websocket.Conn) {
	c.accessMu.Lock()
	defer c.accessMu.Unlock()

	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *WebsocketClient) Call(ctx context.Context, api, method string, args []any, result any) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	c.rwMu.Lock()
	defer c.rwMu.Unlock()

	// the context may have ended while waiting for the previous exchange
	if err := ctx.Err(); err != nil {
		return err
	}

	c.nextID++
	id := c.nextID

	deadline := time.Now().Add(c.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := conn.WriteJSON(newRequest(id, api, method, args)); err != nil {
		c.drop(conn)
		return fmt.Errorf("write: %w", err)
	}

	// cancellation without a deadline still has to unblock ReadMessage
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.drop(conn)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read: %w", err)
		}

		var decoded response
		if err := json.Unmarshal(msg, &decoded); err != nil {
			c.drop(conn)
			return fmt.Errorf("error unmarshalling: %w", err)
		}

		// subscription notices share the socket, skip anything that is not our answer
		if decoded.Method != "" {
			config.Log.Debugf("Skipping websocket notice %s", decoded.Method)
			continue
		}
		if respID, idErr := parseID(decoded.ID); idErr == nil && respID < id {
			config.Log.Debugf("Skipping stale websocket response %d", respID)
			continue
		}

		return unmarshalResponse(&decoded, id, result)
	}
}

func (c *WebsocketClient) Close() error {
	c.accessMu.Lock()
	defer c.accessMu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}
