package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/models"
)

var ErrNoSuchBlock = errors.New("no such block")

// Chain is an in-memory chain whose block n is Blocks[n-1]. It counts every read.
type Chain struct {
	Blocks []models.Block

	// T, when set, fails the test on any read. Used to prove a code path never touches the chain.
	T *testing.T

	mu       sync.Mutex
	failures map[int64]int
	failErr  error

	HeightReads    atomic.Int64
	TimestampReads atomic.Int64
	BlockReads     atomic.Int64
}

func NewChain(blocks ...models.Block) *Chain {
	for i := range blocks {
		blocks[i].Height = int64(i + 1)
	}
	return &Chain{Blocks: blocks}
}

// ForbiddenChain fails t when any of its methods are called.
func ForbiddenChain(t *testing.T) *Chain {
	return &Chain{T: t}
}

// EvenlySpaced builds n blocks starting at start, one every interval.
func EvenlySpaced(start time.Time, interval time.Duration, n int) *Chain {
	blocks := make([]models.Block, n)
	for i := range blocks {
		blocks[i] = Block(start.Add(time.Duration(i) * interval))
	}
	return NewChain(blocks...)
}

// FailHeight makes the next count reads of height fail with err.
func (c *Chain) FailHeight(height int64, count int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures == nil {
		c.failures = make(map[int64]int)
	}
	c.failures[height] = count
	c.failErr = err
}

func (c *Chain) check(method string, height int64) error {
	if c.T != nil {
		c.T.Errorf("unexpected chain read %s(%d)", method, height)
		return fmt.Errorf("unexpected chain read %s", method)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.failures[height]; n > 0 {
		c.failures[height] = n - 1
		return c.failErr
	}
	if height != 0 && (height < 1 || height > int64(len(c.Blocks))) {
		return fmt.Errorf("%w: %d", ErrNoSuchBlock, height)
	}
	return nil
}

func (c *Chain) CurrentHeight(ctx context.Context) (int64, error) {
	c.HeightReads.Add(1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.check("CurrentHeight", 0); err != nil {
		return 0, err
	}
	return int64(len(c.Blocks)), nil
}

func (c *Chain) BlockTimestamp(ctx context.Context, height int64) (time.Time, error) {
	c.TimestampReads.Add(1)
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if err := c.check("BlockTimestamp", height); err != nil {
		return time.Time{}, err
	}
	return c.Blocks[height-1].Timestamp.Time, nil
}

func (c *Chain) Block(ctx context.Context, height int64) (*models.Block, error) {
	c.BlockReads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.check("Block", height); err != nil {
		return nil, err
	}
	block := c.Blocks[height-1]
	return &block, nil
}

// Block builds a block at ts with a single transaction holding ops.
func Block(ts time.Time, ops ...models.Operation) models.Block {
	block := models.Block{Timestamp: models.NewTime(ts)}
	if len(ops) > 0 {
		block.Transactions = []models.Transaction{{Operations: ops}}
	}
	return block
}

// Op builds an operation of type typeID paying amount of asset.
func Op(typeID int, amount int64, asset string) models.Operation {
	return models.Operation{
		Type: typeID,
		Fee:  &models.Fee{Amount: models.Amount(amount), AssetID: asset},
	}
}

// Date is a UTC midnight shorthand.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
