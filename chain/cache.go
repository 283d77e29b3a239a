package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/DefiantLabs/bts-fee-indexer/core"
	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/redis/go-redis/v9"
)

const (
	timestampKeyFormat = "c/%s/ts/%d"
	blockKeyFormat     = "c/%s/block/%d"
)

// CachedChain is a read-through redis cache in front of another chain. Blocks within
// minDepth of the head are never cached since they may still be reorganized.
type CachedChain struct {
	inner    core.Chain
	rdb      *redis.Client
	prefix   string
	minDepth int64

	head atomic.Int64
}

func NewCachedChain(inner core.Chain, rdb *redis.Client, prefix string, minDepth int64) *CachedChain {
	return &CachedChain{
		inner:    inner,
		rdb:      rdb,
		prefix:   prefix,
		minDepth: minDepth,
	}
}

// CurrentHeight always goes to the inner chain and remembers the answer for cache decisions.
func (c *CachedChain) CurrentHeight(ctx context.Context) (int64, error) {
	head, err := c.inner.CurrentHeight(ctx)
	if err != nil {
		return 0, err
	}
	c.head.Store(head)
	return head, nil
}

func (c *CachedChain) cacheable(ctx context.Context, height int64) bool {
	head := c.head.Load()
	if head == 0 {
		var err error
		if head, err = c.CurrentHeight(ctx); err != nil {
			return false
		}
	}
	return height <= head-c.minDepth
}

func (c *CachedChain) BlockTimestamp(ctx context.Context, height int64) (time.Time, error) {
	key := fmt.Sprintf(timestampKeyFormat, c.prefix, height)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			return ts, nil
		}
		config.Log.Warnf("Discarding malformed cached timestamp for block %d", height)
	} else if !errors.Is(err, redis.Nil) {
		config.Log.Warn("Error reading block timestamp cache", err)
	}

	ts, err := c.inner.BlockTimestamp(ctx, height)
	if err != nil {
		return time.Time{}, err
	}

	if c.cacheable(ctx, height) {
		if err := c.rdb.Set(ctx, key, ts.UTC().Format(time.RFC3339), 0).Err(); err != nil {
			config.Log.Warn("Error writing block timestamp cache", err)
		}
	}
	return ts, nil
}

func (c *CachedChain) Block(ctx context.Context, height int64) (*models.Block, error) {
	key := fmt.Sprintf(blockKeyFormat, c.prefix, height)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var block models.Block
		if jsonErr := json.Unmarshal(raw, &block); jsonErr == nil {
			block.Height = height
			return &block, nil
		}
		config.Log.Warnf("Discarding malformed cached block %d", height)
	} else if !errors.Is(err, redis.Nil) {
		config.Log.Warn("Error reading block cache", err)
	}

	block, err := c.inner.Block(ctx, height)
	if err != nil {
		return nil, err
	}

	if c.cacheable(ctx, height) {
		res, err := json.Marshal(block)
		if err != nil {
			return nil, err
		}
		if err := c.rdb.Set(ctx, key, res, 0).Err(); err != nil {
			config.Log.Warn("Error writing block cache", err)
		}
	}
	return block, nil
}
