package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/DefiantLabs/bts-fee-indexer/core"
	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/shopspring/decimal"
)

// Extension is appended to report base names.
const Extension = ".csv"

type Options struct {
	Delimiter rune
	// Precision renders amounts as whole asset units with this many decimals. 0 keeps raw integer units.
	Precision int32
}

type CsvRow interface {
	GetRowForCsv() []string
}

type feeRow struct {
	row       core.Row
	precision int32
}

func (r feeRow) GetRowForCsv() []string {
	out := make([]string, 0, len(r.row.Fees)+1)
	out = append(out, r.row.Date.Format(models.DateLayout))
	for _, fee := range r.row.Fees {
		out = append(out, formatAmount(fee, r.precision))
	}
	return out
}

func formatAmount(amount decimal.Decimal, precision int32) string {
	if precision <= 0 {
		return amount.String()
	}
	return amount.Shift(-precision).StringFixed(precision)
}

// Rows adapts the table rows for writing.
func Rows(table *core.Table, precision int32) []CsvRow {
	rows := make([]CsvRow, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = feeRow{row: row, precision: precision}
	}
	return rows
}

// Create the CSV and write it to byte buffer
func ToCsv(table *core.Table, opts Options) (bytes.Buffer, error) {
	var b bytes.Buffer
	err := Write(&b, table, opts)
	return b, err
}

// Write emits the header row followed by one row per day.
func Write(out io.Writer, table *core.Table, opts Options) error {
	w := csv.NewWriter(out)
	if opts.Delimiter != 0 {
		w.Comma = opts.Delimiter
	}

	if err := w.Write(table.Headers()); err != nil {
		config.Log.Error("Error writing header to csv", err)
		return err
	}

	for _, row := range Rows(table, opts.Precision) {
		if err := w.Write(row.GetRowForCsv()); err != nil {
			config.Log.Error("Error writing row to csv", err)
			return err
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		config.Log.Error("Error flushing csv", err)
		return err
	}

	return nil
}

// FileName appends the tabular extension to a base name unless it is already there.
func FileName(base string) string {
	if strings.HasSuffix(strings.ToLower(base), Extension) {
		return base
	}
	return base + Extension
}

// WriteFile writes the table to <base>.csv and returns the path written.
func WriteFile(base string, table *core.Table, opts Options) (string, error) {
	path := FileName(base)

	buffer, err := ToCsv(table, opts)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
