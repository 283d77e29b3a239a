package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/test"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChain() *test.Chain {
	day := test.Date(2020, 1, 1)
	return test.NewChain(
		test.Block(day.Add(3*time.Second), test.Op(0, 100, "1.3.0")),
		test.Block(day.Add(6*time.Second)),
		test.Block(day.Add(9*time.Second), test.Op(1, 20, "1.3.0"), test.Op(0, 10, "1.3.121")),
	)
}

func exerciseClient(t *testing.T, c Client) {
	ctx := context.Background()

	height, err := GetLatestBlockHeight(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(3), height)

	header, err := GetBlockHeader(ctx, c, 2)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 6, 0, time.UTC), header.Timestamp.Time)

	block, err := GetBlock(ctx, c, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), block.Height)
	require.Len(t, block.Transactions, 1)
	require.Len(t, block.Transactions[0].Operations, 2)
	assert.Equal(t, 1, block.Transactions[0].Operations[0].Type)
	assert.Equal(t, "1.3.121", block.Transactions[0].Operations[1].Fee.AssetID)

	_, err = GetBlock(ctx, c, 4)
	assert.ErrorIs(t, err, ErrBlockNotFound)
	_, err = GetBlockHeader(ctx, c, 40)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestHTTPClient(t *testing.T) {
	server := test.NewNode(testChain()).Start()
	defer server.Close()

	c, err := NewClient(context.Background(), server.URL, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*HTTPClient)
	require.True(t, ok, "http endpoints should use the HTTP transport")
	exerciseClient(t, c)
}

func TestWebsocketClient(t *testing.T) {
	server := test.NewNode(testChain()).Start()
	defer server.Close()

	c, err := NewClient(context.Background(), test.WebsocketURL(server), 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*WebsocketClient)
	require.True(t, ok, "ws endpoints should use the websocket transport")
	exerciseClient(t, c)
}

func TestWebsocketReconnects(t *testing.T) {
	server := test.NewNode(testChain()).Start()
	defer server.Close()

	c, err := DialWebsocket(context.Background(), test.WebsocketURL(server), 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	// break the connection underneath the client
	require.NoError(t, c.conn.Close())
	_, err = GetLatestBlockHeight(context.Background(), c)
	require.Error(t, err)

	height, err := GetLatestBlockHeight(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int64(3), height)
}

// silentNode accepts websocket requests and never answers them.
func silentNode(received *atomic.Int64) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			received.Add(1)
		}
	}))
}

func TestWebsocketCallStopsOnCancel(t *testing.T) {
	var received atomic.Int64
	server := silentNode(&received)
	defer server.Close()

	c, err := DialWebsocket(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"), 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	started := time.Now()
	_, err = GetLatestBlockHeight(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), 2*time.Second, "cancel should interrupt the pending read")
}

func TestWebsocketCallSkipsCancelledContext(t *testing.T) {
	var received atomic.Int64
	server := silentNode(&received)
	defer server.Close()

	c, err := DialWebsocket(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"), 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = GetLatestBlockHeight(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, received.Load(), "no request should be sent for a cancelled context")
}

func TestNodeErrorIsSurfaced(t *testing.T) {
	node := test.NewNode(testChain())
	node.FailRequests.Store(1)
	server := node.Start()
	defer server.Close()

	c := NewHTTPClient(server.URL, time.Second)
	_, err := GetLatestBlockHeight(context.Background(), c)

	var nodeErr *Error
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "Too many requests", nodeErr.Message)
}

func TestUnsupportedScheme(t *testing.T) {
	_, err := NewClient(context.Background(), "ftp://node", time.Second)
	assert.Error(t, err)
}

func TestMismatchedResponseID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 999, "result": map[string]any{}})
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, time.Second)
	_, err := GetDynamicGlobalProperties(context.Background(), c)
	assert.ErrorContains(t, err, "wrong ID")
}

func TestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, time.Second)
	_, err := GetDynamicGlobalProperties(context.Background(), c)
	assert.ErrorContains(t, err, "unexpected status")
}

func TestParseID(t *testing.T) {
	id, err := parseID(json.RawMessage(`7`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	id, err = parseID(json.RawMessage(`"8"`))
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)

	_, err = parseID(json.RawMessage(`"abc"`))
	assert.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	flaky := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	}

	v, err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 1, MaxWaitSeconds: 2}, "flaky", flaky)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	broken := func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("connection refused")
	}

	_, err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 0}, "broken", broken)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "zero retry attempts means a single try")
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	broken := func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("connection refused")
	}

	_, err := WithRetry(ctx, RetryConfig{MaxAttempts: -1}, "broken", broken)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetryAppliesTimeout(t *testing.T) {
	slow := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	_, err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 0, Timeout: 10 * time.Millisecond}, "slow", slow)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetBackoffDurationForAttempts(t *testing.T) {
	d, maxReached := GetBackoffDurationForAttempts(0, 30*time.Second)
	assert.Equal(t, time.Second, d)
	assert.False(t, maxReached)

	d, maxReached = GetBackoffDurationForAttempts(100, 30*time.Second)
	assert.Equal(t, 30*time.Second, d)
	assert.True(t, maxReached)
}
