package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/DefiantLabs/bts-fee-indexer/util"
)

// FeeRequest describes one report. Dates are calendar days in UTC; any time of day is ignored.
type FeeRequest struct {
	StartDate    time.Time
	EndDate      time.Time
	TrackedAsset string
	OutputName   string
}

// Reporter resolves a date range to blocks and aggregates their fees.
type Reporter struct {
	chain       Chain
	locator     *BlockLocator
	aggregator  *FeeAggregator
	genesisDate time.Time

	// Now is the clock used to reject end dates in the future.
	Now func() time.Time
}

func NewReporter(chain Chain, locator *BlockLocator, aggregator *FeeAggregator, genesisDate time.Time) *Reporter {
	return &Reporter{
		chain:       chain,
		locator:     locator,
		aggregator:  aggregator,
		genesisDate: util.StartOfDay(genesisDate),
		Now:         time.Now,
	}
}

// Validate checks the request without touching the chain.
func (r *Reporter) Validate(req FeeRequest) error {
	start, end := util.StartOfDay(req.StartDate), util.StartOfDay(req.EndDate)
	today := util.StartOfDay(r.Now())

	switch {
	case start.After(end):
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidDateRange,
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	case start.Before(r.genesisDate):
		return fmt.Errorf("%w: start date %s is before the chain launch on %s", ErrInvalidDateRange,
			start.Format(models.DateLayout), r.genesisDate.Format(models.DateLayout))
	case end.After(today):
		return fmt.Errorf("%w: end date %s is in the future", ErrInvalidDateRange, end.Format(models.DateLayout))
	}

	if util.StrNotSet(req.TrackedAsset) {
		return errors.New("tracked asset must be set")
	}
	return nil
}

// BlockRange resolves the request dates to the inclusive block range covering them. The end
// bound is the block before the first block of the following day. last < first means no
// block was produced in the range.
func (r *Reporter) BlockRange(ctx context.Context, req FeeRequest) (first, last int64, err error) {
	head, err := r.chain.CurrentHeight(ctx)
	if err != nil {
		return 0, 0, chainRead(ctx, "current height", 0, err)
	}

	first, err = r.locator.LocateWithin(ctx, util.StartOfDay(req.StartDate), head)
	if err != nil {
		return 0, 0, err
	}

	next, err := r.locator.LocateWithin(ctx, util.StartOfDay(req.EndDate).AddDate(0, 0, 1), head)
	if err != nil {
		return 0, 0, err
	}
	return first, next - 1, nil
}

// AggregateFees validates the request, locates its blocks and builds the daily fee table.
func (r *Reporter) AggregateFees(ctx context.Context, req FeeRequest) (*Table, error) {
	if err := r.Validate(req); err != nil {
		return nil, err
	}

	first, last, err := r.BlockRange(ctx, req)
	if err != nil {
		return nil, err
	}

	if last < first {
		config.Log.Warnf("No blocks between %s and %s", req.StartDate.Format(models.DateLayout), req.EndDate.Format(models.DateLayout))
		return &Table{FirstBlock: first, LastBlock: last}, nil
	}

	config.Log.Infof("Aggregating %s fees over blocks %d to %d", req.TrackedAsset, first, last)
	return r.aggregator.Aggregate(ctx, first, last, req.TrackedAsset)
}
