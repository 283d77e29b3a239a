package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/alitto/pond/v2"
)

// FeeAggregator walks a block range and totals the fees paid in one asset by day and
// operation type.
type FeeAggregator struct {
	chain         Chain
	resolver      OperationResolver
	workers       int
	progressEvery int64
	sortColumns   bool
}

type AggregatorOption func(*FeeAggregator)

// WithWorkers fetches blocks with n concurrent workers. 1 walks the range in order.
func WithWorkers(n int) AggregatorOption {
	return func(a *FeeAggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgressEvery logs progress each time another n blocks have been processed.
func WithProgressEvery(n int64) AggregatorOption {
	return func(a *FeeAggregator) {
		a.progressEvery = n
	}
}

// WithSortedColumns orders operation columns alphabetically.
func WithSortedColumns(sorted bool) AggregatorOption {
	return func(a *FeeAggregator) {
		a.sortColumns = sorted
	}
}

func NewFeeAggregator(chain Chain, resolver OperationResolver, opts ...AggregatorOption) *FeeAggregator {
	a := &FeeAggregator{
		chain:    chain,
		resolver: resolver,
		workers:  1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the table for the inclusive range [begin, end]. Any failure aborts the
// whole walk; no partial table is returned.
func (a *FeeAggregator) Aggregate(ctx context.Context, begin, end int64, trackedAsset string) (*Table, error) {
	if begin < 1 || begin > end {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidBlockRange, begin, end)
	}

	ledger := newFeeLedger()
	progress := &progressTracker{every: a.progressEvery, total: end - begin + 1, start: time.Now()}

	var err error
	if a.workers <= 1 {
		err = a.walk(ctx, begin, end, trackedAsset, ledger, progress)
	} else {
		err = a.walkConcurrently(ctx, begin, end, trackedAsset, ledger, progress)
	}
	if err != nil {
		return nil, err
	}

	t := ledger.table(a.sortColumns)
	t.FirstBlock, t.LastBlock = begin, end
	return t, nil
}

func (a *FeeAggregator) walk(ctx context.Context, begin, end int64, trackedAsset string, ledger *feeLedger, progress *progressTracker) error {
	for height := begin; height <= end; height++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.processBlock(ctx, height, trackedAsset, ledger); err != nil {
			return err
		}
		progress.done()
	}
	return nil
}

func (a *FeeAggregator) walkConcurrently(ctx context.Context, begin, end int64, trackedAsset string, ledger *feeLedger, progress *progressTracker) error {
	pool := pond.NewPool(a.workers, pond.WithQueueSize(a.workers*2))
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for height := begin; height <= end; height++ {
		if groupCtx.Err() != nil {
			break
		}
		h := height
		group.SubmitErr(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			if err := a.processBlock(groupCtx, h, trackedAsset, ledger); err != nil {
				return err
			}
			progress.done()
			return nil
		})
	}

	err := group.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, pond.ErrGroupStopped) {
		return fmt.Errorf("block walk stopped early: %w", err)
	}
	return err
}

func (a *FeeAggregator) processBlock(ctx context.Context, height int64, trackedAsset string, ledger *feeLedger) error {
	block, err := a.chain.Block(ctx, height)
	if err != nil {
		return chainRead(ctx, "block", height, err)
	}

	fees := newBlockFees(height, block.Timestamp.Date())
	op := 0
	for _, tx := range block.Transactions {
		for _, operation := range tx.Operations {
			name, err := a.resolver.Resolve(operation.Type)
			if err != nil {
				return fmt.Errorf("block %d: %w", height, err)
			}
			// fees in any asset but the tracked one are skipped, not an error
			var paid int64
			if operation.Fee != nil && operation.Fee.AssetID == trackedAsset {
				paid = int64(operation.Fee.Amount)
			}
			fees.observe(name, op, paid)
			op++
		}
	}

	ledger.add(fees)
	return nil
}

type progressTracker struct {
	every     int64
	total     int64
	start     time.Time
	processed atomic.Int64
}

func (p *progressTracker) done() {
	n := p.processed.Add(1)
	if p.every > 0 && n%p.every == 0 {
		config.Log.Infof("Processed %d of %d blocks in %s", n, p.total, time.Since(p.start).Round(time.Millisecond))
	}
}
