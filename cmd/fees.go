package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/DefiantLabs/bts-fee-indexer/core"
	"github.com/DefiantLabs/bts-fee-indexer/csv"
	"github.com/DefiantLabs/bts-fee-indexer/operations"
	"github.com/spf13/cobra"
)

// stdoutOutput writes the report to stdout instead of a file.
const stdoutOutput = "-"

var feesConfig config.FeesConfig

func init() {
	config.SetupLogFlags(&feesConfig.Log, feesCmd)
	config.SetupChainFlags(&feesConfig.Chain, feesCmd)
	config.SetupRedisFlags(&feesConfig.Redis, feesCmd)
	config.SetupChainBaseFlags(&feesConfig.Base, feesCmd)
	config.SetupFeesSpecificFlags(&feesConfig, feesCmd)
	rootCmd.AddCommand(feesCmd)
}

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Totals the fees paid per day and operation type for a date range.",
	Long: `Locates the blocks produced between fees.start-date and fees.end-date (inclusive, UTC),
	totals the fees paid in fees.asset per day and operation type, and writes the table
	to <fees.output>.csv.`,
	PreRunE: setupFees,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runFees(ctx, feesConfig)
	},
}

func setupFees(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, viperConf)
	err := feesConfig.Validate()
	if err != nil {
		return err
	}

	ignoredKeys := config.CheckSuperfluousFeesKeys(viperConf.AllKeys())

	if len(ignoredKeys) > 0 {
		config.Log.Warnf("Warning, the following invalid keys will be ignored: %v", ignoredKeys)
	}

	setupLoggerTo(feesLogOutput(feesConfig), feesConfig.Log.Level, feesConfig.Log.Path, feesConfig.Log.Pretty)
	return nil
}

// feesLogOutput moves logs to stderr when the report itself goes to stdout.
func feesLogOutput(conf config.FeesConfig) io.Writer {
	if conf.Fees.Output == stdoutOutput {
		return os.Stderr
	}
	return os.Stdout
}

func runFees(ctx context.Context, conf config.FeesConfig) error {
	start, end, genesisDate := conf.Dates()
	req := core.FeeRequest{
		StartDate:    start,
		EndDate:      end,
		TrackedAsset: conf.Fees.Asset,
		OutputName:   conf.Fees.Output,
	}

	policy, err := operations.ParsePolicy(conf.Fees.UnknownOps)
	if err != nil {
		return err
	}

	// Reject bad ranges before dialing anything.
	if err := core.NewReporter(nil, nil, nil, genesisDate).Validate(req); err != nil {
		return err
	}

	chain, closeChain, err := connectChain(ctx, conf.Chain, conf.Redis, retryConfig(conf.Base.RequestRetryAttempts, conf.Base.RequestRetryMaxWait))
	if err != nil {
		return err
	}
	defer closeChain()

	aggregator := core.NewFeeAggregator(chain, operations.NewResolver(policy),
		core.WithWorkers(int(conf.Base.RPCWorkers)),
		core.WithProgressEvery(conf.Base.BlockTimer),
		core.WithSortedColumns(conf.Fees.SortColumns),
	)
	reporter := core.NewReporter(chain, core.NewBlockLocator(chain, conf.Base.GenesisBlock), aggregator, genesisDate)

	config.Log.Infof("Aggregating %s fees from %s to %s", req.TrackedAsset, conf.Fees.StartDate, conf.Fees.EndDate)
	table, err := reporter.AggregateFees(ctx, req)
	if err != nil {
		return err
	}

	for _, column := range table.Columns {
		config.Log.Debugf("%s: %s", column, table.ColumnTotal(column))
	}
	config.Log.Infof("Total %s fees paid: %s", req.TrackedAsset, table.Total())

	opts := csv.Options{Delimiter: conf.Delimiter(), Precision: conf.Fees.Precision}
	if req.OutputName == stdoutOutput {
		return csv.Write(os.Stdout, table, opts)
	}

	path, err := csv.WriteFile(req.OutputName, table, opts)
	if err != nil {
		return err
	}
	config.Log.Infof("Wrote %d days and %d operation types from blocks %d-%d to %s",
		len(table.Rows), len(table.Columns), table.FirstBlock, table.LastBlock, path)
	return nil
}
