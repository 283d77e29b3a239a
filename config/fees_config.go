package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/DefiantLabs/bts-fee-indexer/operations"
	"github.com/DefiantLabs/bts-fee-indexer/util"
	"github.com/spf13/cobra"
)

// CoreAssetID is the BitShares core asset (BTS).
const CoreAssetID = "1.3.0"

// DefaultGenesisDate is the BitShares 2.0 launch, the earliest date fee reports are accepted for.
const DefaultGenesisDate = "2015-10-13"

var assetIDRegex = regexp.MustCompile(`^1\.3\.[0-9]+$`)

type FeesConfig struct {
	Log   log
	Chain Chain
	Redis Redis
	Base  chainBase
	Fees  feesBase
}

type chainBase struct {
	retryBase
	RPCWorkers   int64 `mapstructure:"rpc-workers"`
	BlockTimer   int64 `mapstructure:"block-timer"`
	GenesisBlock int64 `mapstructure:"genesis-block"`
}

type feesBase struct {
	StartDate   string `mapstructure:"start-date"`
	EndDate     string `mapstructure:"end-date"`
	Asset       string `mapstructure:"asset"`
	Output      string `mapstructure:"output"`
	UnknownOps  string `mapstructure:"unknown-ops"`
	SortColumns bool   `mapstructure:"sort-columns"`
	Precision   int32  `mapstructure:"precision"`
	Delimiter   string `mapstructure:"delimiter"`
	GenesisDate string `mapstructure:"genesis-date"`
}

func SetupChainBaseFlags(conf *chainBase, cmd *cobra.Command) {
	SetupRetryFlags(&conf.retryBase, cmd)
	cmd.PersistentFlags().Int64Var(&conf.RPCWorkers, "base.rpc-workers", 1, "number of concurrent block fetchers (1 walks blocks sequentially)")
	cmd.PersistentFlags().Int64Var(&conf.BlockTimer, "base.block-timer", 10000, "print out how long it takes to process this many blocks")
	cmd.PersistentFlags().Int64Var(&conf.GenesisBlock, "base.genesis-block", 1, "lowest block index considered when locating dates")
}

func SetupFeesSpecificFlags(conf *FeesConfig, cmd *cobra.Command) {
	cmd.Flags().StringVar(&conf.Fees.StartDate, "fees.start-date", "", "first day of the report (YYYY-MM-DD, UTC)")
	cmd.Flags().StringVar(&conf.Fees.EndDate, "fees.end-date", "", "last day of the report, inclusive (YYYY-MM-DD, UTC)")
	cmd.Flags().StringVar(&conf.Fees.Asset, "fees.asset", CoreAssetID, "fee asset to total, fees paid in any other asset are ignored")
	cmd.Flags().StringVar(&conf.Fees.Output, "fees.output", "Untitled", "base name of the CSV file to write (.csv is appended), use - for stdout")
	cmd.Flags().StringVar(&conf.Fees.UnknownOps, "fees.unknown-ops", "fail", fmt.Sprintf("what to do with unknown operation types %v", operations.GetPolicyKeys()))
	cmd.Flags().BoolVar(&conf.Fees.SortColumns, "fees.sort-columns", false, "order operation columns alphabetically instead of by first appearance")
	cmd.Flags().Int32Var(&conf.Fees.Precision, "fees.precision", 0, "render amounts with this many decimals instead of raw integer units (BTS uses 5)")
	cmd.Flags().StringVar(&conf.Fees.Delimiter, "fees.delimiter", ",", "column delimiter")
	cmd.Flags().StringVar(&conf.Fees.GenesisDate, "fees.genesis-date", DefaultGenesisDate, "earliest start date accepted (YYYY-MM-DD)")
}

func validateChainBase(conf chainBase) error {
	if err := validateRetryConf(conf.retryBase); err != nil {
		return err
	}
	if conf.RPCWorkers < 1 {
		return errors.New("base.rpc-workers must be 1 or greater")
	}
	if conf.BlockTimer < 1 {
		return errors.New("base.block-timer must be 1 or greater")
	}
	if conf.GenesisBlock < 1 {
		return errors.New("base.genesis-block must be 1 or greater")
	}
	return nil
}

func (conf *FeesConfig) Validate() error {
	chainConf, err := validateChainConf(conf.Chain)
	if err != nil {
		return err
	}
	conf.Chain = chainConf

	if err := validateRedisConf(conf.Redis); err != nil {
		return err
	}

	if err := validateChainBase(conf.Base); err != nil {
		return err
	}

	if util.StrNotSet(conf.Fees.StartDate) {
		return errors.New("fees.start-date must be set")
	}
	if util.StrNotSet(conf.Fees.EndDate) {
		return errors.New("fees.end-date must be set")
	}
	for _, d := range []string{conf.Fees.StartDate, conf.Fees.EndDate, conf.Fees.GenesisDate} {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return fmt.Errorf("invalid date '%v', dates must be specified in the format 'YYYY-MM-DD'", d)
		}
	}

	if !assetIDRegex.MatchString(conf.Fees.Asset) {
		return fmt.Errorf("invalid asset %q, expected an asset object id such as %s", conf.Fees.Asset, CoreAssetID)
	}

	if util.StrNotSet(conf.Fees.Output) {
		return errors.New("fees.output must be set")
	}

	if _, err := operations.ParsePolicy(conf.Fees.UnknownOps); err != nil {
		return err
	}

	if conf.Fees.Precision < 0 || conf.Fees.Precision > 18 {
		return errors.New("fees.precision must be between 0 and 18")
	}

	if utf8.RuneCountInString(conf.Fees.Delimiter) != 1 {
		return fmt.Errorf("invalid delimiter %q, must be a single character", conf.Fees.Delimiter)
	}
	if r, _ := utf8.DecodeRuneInString(conf.Fees.Delimiter); r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q", conf.Fees.Delimiter)
	}

	return nil
}

// Dates returns the parsed start, end and genesis-cutoff dates. Validate must have succeeded.
func (conf *FeesConfig) Dates() (start, end, genesis time.Time) {
	start, _ = time.Parse(models.DateLayout, conf.Fees.StartDate)
	end, _ = time.Parse(models.DateLayout, conf.Fees.EndDate)
	genesis, _ = time.Parse(models.DateLayout, conf.Fees.GenesisDate)
	return start, end, genesis
}

func (conf *FeesConfig) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(conf.Fees.Delimiter)
	return r
}

func CheckSuperfluousFeesKeys(keys []string) []string {
	validKeys := make(map[string]struct{})

	addLogConfigKeys(validKeys)
	addChainConfigKeys(validKeys)
	addRedisConfigKeys(validKeys)
	addRetryConfigKeys(validKeys)

	for _, key := range getValidConfigKeys(chainBase{}, "base") {
		validKeys[key] = struct{}{}
	}
	for _, key := range getValidConfigKeys(feesBase{}, "fees") {
		validKeys[key] = struct{}{}
	}

	return ignoredKeys(keys, validKeys)
}
