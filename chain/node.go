package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/DefiantLabs/bts-fee-indexer/rpc"
)

// NodeChain reads blocks from a graphene API node. Every read is bounded by the retry
// config's per-attempt timeout and retried with backoff.
type NodeChain struct {
	client rpc.Client
	retry  rpc.RetryConfig
}

func NewNodeChain(client rpc.Client, retry rpc.RetryConfig) *NodeChain {
	return &NodeChain{client: client, retry: retry}
}

func (c *NodeChain) CurrentHeight(ctx context.Context) (int64, error) {
	return rpc.WithRetry(ctx, c.retry, "get_dynamic_global_properties", func(ctx context.Context) (int64, error) {
		return rpc.GetLatestBlockHeight(ctx, c.client)
	})
}

func (c *NodeChain) BlockTimestamp(ctx context.Context, height int64) (time.Time, error) {
	return rpc.WithRetry(ctx, c.retry, fmt.Sprintf("get_block_header(%d)", height), func(ctx context.Context) (time.Time, error) {
		header, err := rpc.GetBlockHeader(ctx, c.client, height)
		if err != nil {
			return time.Time{}, err
		}
		return header.Timestamp.Time, nil
	})
}

func (c *NodeChain) Block(ctx context.Context, height int64) (*models.Block, error) {
	return rpc.WithRetry(ctx, c.retry, fmt.Sprintf("get_block(%d)", height), func(ctx context.Context) (*models.Block, error) {
		return rpc.GetBlock(ctx, c.client, height)
	})
}

func (c *NodeChain) Close() error {
	return c.client.Close()
}
