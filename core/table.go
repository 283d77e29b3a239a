package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateHeader labels the first column of the report.
const DateHeader = "Date"

// Table is the dense daily fee report. Every row has one cell per column.
type Table struct {
	Columns []string
	Rows    []Row

	// FirstBlock and LastBlock are the inclusive block range the table was built from.
	// An empty range has LastBlock < FirstBlock.
	FirstBlock int64
	LastBlock  int64
}

type Row struct {
	Date time.Time
	Fees []decimal.Decimal
}

func (t *Table) Headers() []string {
	return append([]string{DateHeader}, t.Columns...)
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the total for an operation type on a day, zero when either is absent.
func (t *Table) Cell(date time.Time, column string) decimal.Decimal {
	idx := t.columnIndex(column)
	if idx < 0 {
		return decimal.Zero
	}
	for _, row := range t.Rows {
		if row.Date.Equal(date) {
			return row.Fees[idx]
		}
	}
	return decimal.Zero
}

func (t *Table) ColumnTotal(column string) decimal.Decimal {
	idx := t.columnIndex(column)
	total := decimal.Zero
	if idx < 0 {
		return total
	}
	for _, row := range t.Rows {
		total = total.Add(row.Fees[idx])
	}
	return total
}

func (t *Table) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range t.Rows {
		for _, fee := range row.Fees {
			total = total.Add(fee)
		}
	}
	return total
}
