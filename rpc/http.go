package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

type HTTPClient struct {
	Address string
	Client  *http.Client

	nextID atomic.Int64
}

func NewHTTPClient(address string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Address: address,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Call(ctx context.Context, api, method string, args []any, result any) error {
	id := c.nextID.Add(1)

	body, err := json.Marshal(newRequest(id, api, method, args))
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Address, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var decoded response
	if err := json.Unmarshal(responseBytes, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		return fmt.Errorf("error unmarshalling: %w", err)
	}

	return unmarshalResponse(&decoded, id, result)
}

func (c *HTTPClient) Close() error {
	c.Client.CloseIdleConnections()
	return nil
}
