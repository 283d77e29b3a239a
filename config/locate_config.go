package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/models"
	"github.com/DefiantLabs/bts-fee-indexer/util"
	"github.com/spf13/cobra"
)

type LocateConfig struct {
	Log    log
	Chain  Chain
	Redis  Redis
	Base   chainBase
	Locate locateBase
}

type locateBase struct {
	Date string `mapstructure:"date"`
}

func SetupLocateSpecificFlags(conf *LocateConfig, cmd *cobra.Command) {
	cmd.Flags().StringVar(&conf.Locate.Date, "locate.date", "", "moment to locate, 'YYYY-MM-DD' or 'YYYY-MM-DDTHH:MM:SS' in UTC")
}

func (conf *LocateConfig) Validate() error {
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

	if util.StrNotSet(conf.Locate.Date) {
		return errors.New("locate.date must be set")
	}
	if _, err := conf.Target(); err != nil {
		return err
	}
	return nil
}

// Target parses locate.date as a UTC moment.
func (conf *LocateConfig) Target() (time.Time, error) {
	for _, layout := range []string{models.TimeLayout, models.DateLayout} {
		if t, err := time.ParseInLocation(layout, conf.Locate.Date, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date '%v', expected 'YYYY-MM-DD' or 'YYYY-MM-DDTHH:MM:SS'", conf.Locate.Date)
}

func CheckSuperfluousLocateKeys(keys []string) []string {
	validKeys := make(map[string]struct{})

	addLogConfigKeys(validKeys)
	addChainConfigKeys(validKeys)
	addRedisConfigKeys(validKeys)
	addRetryConfigKeys(validKeys)

	for _, key := range getValidConfigKeys(chainBase{}, "base") {
		validKeys[key] = struct{}{}
	}
	for _, key := range getValidConfigKeys(locateBase{}, "locate") {
		validKeys[key] = struct{}{}
	}

	return ignoredKeys(keys, validKeys)
}
