package core

import (
	"context"
	"time"
)

// BlockLocator finds the first block produced at or after a moment by binary search over
// block timestamps, which are monotonic in height.
type BlockLocator struct {
	chain   Chain
	genesis int64
}

func NewBlockLocator(chain Chain, genesis int64) *BlockLocator {
	if genesis < 1 {
		genesis = 1
	}
	return &BlockLocator{chain: chain, genesis: genesis}
}

func (l *BlockLocator) Genesis() int64 {
	return l.genesis
}

// Locate resolves target against the current head of the chain.
func (l *BlockLocator) Locate(ctx context.Context, target time.Time) (int64, error) {
	head, err := l.chain.CurrentHeight(ctx)
	if err != nil {
		return 0, chainRead(ctx, "current height", 0, err)
	}
	return l.LocateWithin(ctx, target, head)
}

// LocateWithin returns the first height in [genesis, head] whose timestamp is not before target.
// Equal timestamps count as at-or-after. A target past the head block yields head+1, the next
// block to be produced; a target at or before genesis yields genesis.
func (l *BlockLocator) LocateWithin(ctx context.Context, target time.Time, head int64) (int64, error) {
	lower, upper := l.genesis, head+1
	if upper < lower {
		return lower, nil
	}

	for lower < upper {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		mid := lower + (upper-lower)/2
		ts, err := l.chain.BlockTimestamp(ctx, mid)
		if err != nil {
			return 0, chainRead(ctx, "block timestamp", mid, err)
		}

		if ts.Before(target) {
			lower = mid + 1
		} else {
			upper = mid
		}
	}
	return lower, nil
}
