package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/DefiantLabs/bts-fee-indexer/models"
)

const databaseAPI = "database"

// ErrBlockNotFound is returned for heights the node has no block for.
var ErrBlockNotFound = errors.New("block not found")

// GetDynamicGlobalProperties returns the node's view of the chain head.
func GetDynamicGlobalProperties(ctx context.Context, c Client) (*models.DynamicGlobalProperties, error) {
	props := new(models.DynamicGlobalProperties)
	if err := c.Call(ctx, databaseAPI, "get_dynamic_global_properties", nil, props); err != nil {
		return nil, err
	}
	return props, nil
}

// GetLatestBlockHeight returns the head block number.
func GetLatestBlockHeight(ctx context.Context, c Client) (int64, error) {
	props, err := GetDynamicGlobalProperties(ctx, c)
	if err != nil {
		return 0, err
	}
	return props.HeadBlockNumber, nil
}

// GetBlockHeader fetches only the header of a block, which is all timestamp lookups need.
func GetBlockHeader(ctx context.Context, c Client, height int64) (*models.BlockHeader, error) {
	header := new(models.BlockHeader)
	err := c.Call(ctx, databaseAPI, "get_block_header", []any{height}, header)
	if errors.Is(err, ErrNullResult) {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, height)
	}
	if err != nil {
		return nil, err
	}
	return header, nil
}

// GetBlock fetches a full block with its transactions.
func GetBlock(ctx context.Context, c Client, height int64) (*models.Block, error) {
	block := new(models.Block)
	err := c.Call(ctx, databaseAPI, "get_block", []any{height}, block)
	if errors.Is(err, ErrNullResult) {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, height)
	}
	if err != nil {
		return nil, err
	}
	block.Height = height
	return block, nil
}
