package core

import (
	"sort"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/shopspring/decimal"
)

// position orders first observations of an operation type: block height, then operation
// index within the block.
type position struct {
	height int64
	op     int
}

func (p position) before(o position) bool {
	if p.height != o.height {
		return p.height < o.height
	}
	return p.op < o.op
}

type dayTotals struct {
	date time.Time
	fees map[string]decimal.Decimal
}

// blockFees holds the tracked-asset totals extracted from one block.
type blockFees struct {
	height int64
	date   time.Time
	fees   map[string]decimal.Decimal
	seen   map[string]position
}

func newBlockFees(height int64, date time.Time) *blockFees {
	return &blockFees{
		height: height,
		date:   date,
		fees:   make(map[string]decimal.Decimal),
		seen:   make(map[string]position),
	}
}

// observe records an operation of type name at index op in the block. paid is the amount
// charged in the tracked asset, zero when the fee was in any other asset.
func (b *blockFees) observe(name string, op int, paid int64) {
	if _, ok := b.seen[name]; !ok {
		b.seen[name] = position{height: b.height, op: op}
	}
	b.fees[name] = b.fees[name].Add(decimal.NewFromInt(paid))
}

// feeLedger accumulates block totals by calendar day and operation type. Merging is a plain
// sum per key so blocks may be added concurrently and in any order.
type feeLedger struct {
	days    *xsync.Map[string, *dayTotals]
	columns *xsync.Map[string, position]
}

func newFeeLedger() *feeLedger {
	return &feeLedger{
		days:    xsync.NewMap[string, *dayTotals](),
		columns: xsync.NewMap[string, position](),
	}
}

func (l *feeLedger) add(b *blockFees) {
	key := b.date.Format(models.DateLayout)
	l.days.Compute(key, func(old *dayTotals, loaded bool) (*dayTotals, xsync.ComputeOp) {
		if !loaded {
			old = &dayTotals{date: b.date, fees: make(map[string]decimal.Decimal)}
		}
		for name, amount := range b.fees {
			old.fees[name] = old.fees[name].Add(amount)
		}
		return old, xsync.UpdateOp
	})

	for name, pos := range b.seen {
		l.columns.Compute(name, func(old position, loaded bool) (position, xsync.ComputeOp) {
			if loaded && old.before(pos) {
				return old, xsync.CancelOp
			}
			return pos, xsync.UpdateOp
		})
	}
}

// table compacts the ledger into a dense table. Rows are ascending dates. Columns follow first
// observation unless sortColumns asks for alphabetical order.
func (l *feeLedger) table(sortColumns bool) *Table {
	type column struct {
		name string
		pos  position
	}
	columns := make([]column, 0, l.columns.Size())
	l.columns.Range(func(name string, pos position) bool {
		columns = append(columns, column{name: name, pos: pos})
		return true
	})
	sort.Slice(columns, func(i, j int) bool {
		if sortColumns || columns[i].pos == columns[j].pos {
			return columns[i].name < columns[j].name
		}
		return columns[i].pos.before(columns[j].pos)
	})

	t := &Table{Columns: make([]string, len(columns))}
	for i, c := range columns {
		t.Columns[i] = c.name
	}

	keys := make([]string, 0, l.days.Size())
	l.days.Range(func(key string, _ *dayTotals) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)

	for _, key := range keys {
		day, _ := l.days.Load(key)
		row := Row{Date: day.date, Fees: make([]decimal.Decimal, len(t.Columns))}
		for i, name := range t.Columns {
			row.Fees[i] = day.fees[name]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
