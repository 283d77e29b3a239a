package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/DefiantLabs/bts-fee-indexer/core"
	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/spf13/cobra"
)

var locateConfig config.LocateConfig

func init() {
	config.SetupLogFlags(&locateConfig.Log, locateCmd)
	config.SetupChainFlags(&locateConfig.Chain, locateCmd)
	config.SetupRedisFlags(&locateConfig.Redis, locateCmd)
	config.SetupChainBaseFlags(&locateConfig.Base, locateCmd)
	config.SetupLocateSpecificFlags(&locateConfig, locateCmd)
	rootCmd.AddCommand(locateCmd)
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Prints the first block produced at or after a moment.",
	Long: `Binary searches block timestamps for the lowest block whose timestamp is at or after
	locate.date. Prints the head height plus one when no such block exists yet.`,
	PreRunE: setupLocate,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		height, err := runLocate(ctx, locateConfig)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), height)
		return nil
	},
}

func setupLocate(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, viperConf)
	err := locateConfig.Validate()
	if err != nil {
		return err
	}

	ignoredKeys := config.CheckSuperfluousLocateKeys(viperConf.AllKeys())

	if len(ignoredKeys) > 0 {
		config.Log.Warnf("Warning, the following invalid keys will be ignored: %v", ignoredKeys)
	}

	setupLogger(locateConfig.Log.Level, locateConfig.Log.Path, locateConfig.Log.Pretty)
	return nil
}

func runLocate(ctx context.Context, conf config.LocateConfig) (int64, error) {
	target, err := conf.Target()
	if err != nil {
		return 0, err
	}

	chain, closeChain, err := connectChain(ctx, conf.Chain, conf.Redis, retryConfig(conf.Base.RequestRetryAttempts, conf.Base.RequestRetryMaxWait))
	if err != nil {
		return 0, err
	}
	defer closeChain()

	locator := core.NewBlockLocator(chain, conf.Base.GenesisBlock)
	config.Log.Debugf("Searching from block %d", locator.Genesis())
	height, err := locator.Locate(ctx, target)
	if err != nil {
		return 0, err
	}
	config.Log.Infof("First block at or after %s is %d", target.Format(models.TimeLayout), height)
	return height, nil
}
