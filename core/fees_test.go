package core

import (
	"context"
	"testing"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genesisDate = test.Date(2015, 10, 13)

func newTestReporter(chain Chain, now time.Time) *Reporter {
	reporter := NewReporter(chain, NewBlockLocator(chain, 1), NewFeeAggregator(chain, strictResolver()), genesisDate)
	reporter.Now = func() time.Time { return now }
	return reporter
}

// paddedScenarioChain surrounds the scenario days with blocks that must be excluded.
func paddedScenarioChain() *test.Chain {
	day0 := test.Date(2019, 12, 31)
	day3 := test.Date(2020, 1, 3)
	blocks := []struct {
		at  time.Time
		fee int64
	}{
		{day0.Add(23*time.Hour + 59*time.Minute), 1000},
		{dayOne, 100},
		{dayOne.Add(time.Hour), 0},
		{dayOne.Add(23*time.Hour + 59*time.Minute + 57*time.Second), 0},
		{dayTwo, 50},
		{dayTwo.Add(12 * time.Hour), 0},
		{day3, 7000},
		{day3.Add(time.Hour), 8000},
	}

	chain := test.NewChain()
	for _, b := range blocks {
		if b.fee > 0 {
			chain.Blocks = append(chain.Blocks, test.Block(b.at, test.Op(opTransfer, b.fee, trackedAsset)))
		} else {
			chain.Blocks = append(chain.Blocks, test.Block(b.at))
		}
	}
	// block 5 also carries the limit order and the untracked transfer from the scenario
	chain.Blocks[4].Transactions[0].Operations = append(chain.Blocks[4].Transactions[0].Operations,
		test.Op(opLimitOrderCreate, 20, trackedAsset),
		test.Op(opTransfer, 10, otherAsset),
	)
	return chain
}

func TestAggregateFeesScenario(t *testing.T) {
	chain := paddedScenarioChain()
	reporter := newTestReporter(chain, test.Date(2024, 6, 1))

	req := FeeRequest{StartDate: dayOne, EndDate: dayTwo, TrackedAsset: trackedAsset, OutputName: "fees"}
	first, last, err := reporter.BlockRange(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first)
	assert.Equal(t, int64(6), last)

	table, err := reporter.AggregateFees(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "transfer", "limit_order_create"}, table.Headers())
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"100", "0"}, cellStrings(table.Rows[0]))
	assert.Equal(t, []string{"50", "20"}, cellStrings(table.Rows[1]))
	assert.Equal(t, int64(2), table.FirstBlock)
	assert.Equal(t, int64(6), table.LastBlock)
}

func TestAggregateFeesIgnoresTimeOfDay(t *testing.T) {
	reporter := newTestReporter(paddedScenarioChain(), test.Date(2024, 6, 1))

	req := FeeRequest{StartDate: dayOne.Add(15 * time.Hour), EndDate: dayTwo.Add(time.Hour), TrackedAsset: trackedAsset}
	table, err := reporter.AggregateFees(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "150", table.ColumnTotal("transfer").String())
}

func TestAggregateFeesIdempotent(t *testing.T) {
	chain := paddedScenarioChain()
	reporter := newTestReporter(chain, test.Date(2024, 6, 1))
	req := FeeRequest{StartDate: dayOne, EndDate: test.Date(2020, 1, 3), TrackedAsset: trackedAsset}

	first, err := reporter.AggregateFees(context.Background(), req)
	require.NoError(t, err)
	second, err := reporter.AggregateFees(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Headers(), second.Headers())
	require.Len(t, second.Rows, len(first.Rows))
	for i := range first.Rows {
		assert.Equal(t, cellStrings(first.Rows[i]), cellStrings(second.Rows[i]))
	}
}

func TestAggregateFeesEndingToday(t *testing.T) {
	chain := paddedScenarioChain()
	today := test.Date(2020, 1, 3)
	reporter := newTestReporter(chain, today.Add(2*time.Hour))

	req := FeeRequest{StartDate: today, EndDate: today, TrackedAsset: trackedAsset}
	table, err := reporter.AggregateFees(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(8), table.LastBlock, "a range ending today runs up to the head block")
	assert.Equal(t, "15000", table.Total().String())
}

func TestAggregateFeesNoBlocksInRange(t *testing.T) {
	chain := test.NewChain(
		test.Block(dayOne, test.Op(opTransfer, 1, trackedAsset)),
		test.Block(test.Date(2020, 1, 5), test.Op(opTransfer, 1, trackedAsset)),
	)
	reporter := newTestReporter(chain, test.Date(2024, 6, 1))

	table, err := reporter.AggregateFees(context.Background(), FeeRequest{
		StartDate:    test.Date(2020, 1, 2),
		EndDate:      test.Date(2020, 1, 3),
		TrackedAsset: trackedAsset,
	})
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Equal(t, []string{"Date"}, table.Headers())
	assert.Equal(t, int64(0), chain.BlockReads.Load())
}

func TestAggregateFeesInvalidRangeReadsNothing(t *testing.T) {
	now := test.Date(2024, 6, 1)
	reporter := newTestReporter(test.ForbiddenChain(t), now)

	cases := map[string]FeeRequest{
		"start after end":   {StartDate: dayTwo, EndDate: dayOne, TrackedAsset: trackedAsset},
		"before genesis":    {StartDate: test.Date(2015, 10, 12), EndDate: dayOne, TrackedAsset: trackedAsset},
		"end in the future": {StartDate: dayOne, EndDate: now.AddDate(0, 0, 1), TrackedAsset: trackedAsset},
	}
	for name, req := range cases {
		_, err := reporter.AggregateFees(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidDateRange, name)
	}

	_, err := reporter.AggregateFees(context.Background(), FeeRequest{StartDate: dayOne, EndDate: dayTwo})
	assert.Error(t, err, "tracked asset is required")
}

func TestAggregateFeesChainReadError(t *testing.T) {
	chain := paddedScenarioChain()
	chain.FailHeight(5, 1, assert.AnError)
	reporter := newTestReporter(chain, test.Date(2024, 6, 1))

	table, err := reporter.AggregateFees(context.Background(), FeeRequest{StartDate: dayOne, EndDate: dayTwo, TrackedAsset: trackedAsset})
	assert.ErrorIs(t, err, ErrChainRead)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, table)
}
