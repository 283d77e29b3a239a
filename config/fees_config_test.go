package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FeesConfigTestSuite struct {
	suite.Suite
	conf FeesConfig
}

func (suite *FeesConfigTestSuite) SetupTest() {
	suite.conf = FeesConfig{
		Chain: Chain{RPC: "https://api.bts.example.com", RequestTimeout: 10 * time.Second},
		Base: chainBase{
			retryBase:    retryBase{RequestRetryAttempts: 3, RequestRetryMaxWait: 30},
			RPCWorkers:   1,
			BlockTimer:   1000,
			GenesisBlock: 1,
		},
		Fees: feesBase{
			StartDate:   "2020-01-01",
			EndDate:     "2020-01-02",
			Asset:       CoreAssetID,
			Output:      "fees",
			UnknownOps:  "fail",
			Delimiter:   ",",
			GenesisDate: DefaultGenesisDate,
		},
	}
}

func (suite *FeesConfigTestSuite) TestValid() {
	suite.Require().NoError(suite.conf.Validate())

	start, end, genesis := suite.conf.Dates()
	suite.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), start)
	suite.Equal(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), end)
	suite.Equal(time.Date(2015, 10, 13, 0, 0, 0, 0, time.UTC), genesis)
	suite.Equal(',', suite.conf.Delimiter())
}

func (suite *FeesConfigTestSuite) TestInvalidDates() {
	suite.conf.Fees.StartDate = ""
	suite.Require().Error(suite.conf.Validate())

	suite.conf.Fees.StartDate = "2020-01-01:00:00:00"
	suite.Require().Error(suite.conf.Validate())

	suite.conf.Fees.StartDate = "2020-01-01"
	suite.conf.Fees.EndDate = "01/02/2020"
	suite.Require().Error(suite.conf.Validate())
}

func (suite *FeesConfigTestSuite) TestInvalidAsset() {
	suite.conf.Fees.Asset = "BTS"
	suite.Require().Error(suite.conf.Validate())

	suite.conf.Fees.Asset = "1.2.0"
	suite.Require().Error(suite.conf.Validate())

	suite.conf.Fees.Asset = "1.3.121"
	suite.Require().NoError(suite.conf.Validate())
}

func (suite *FeesConfigTestSuite) TestInvalidOptions() {
	suite.conf.Fees.UnknownOps = "ignore"
	suite.Require().Error(suite.conf.Validate())
	suite.conf.Fees.UnknownOps = "bucket"
	suite.Require().NoError(suite.conf.Validate())

	suite.conf.Fees.Precision = 19
	suite.Require().Error(suite.conf.Validate())
	suite.conf.Fees.Precision = 5
	suite.Require().NoError(suite.conf.Validate())

	suite.conf.Fees.Delimiter = ";;"
	suite.Require().Error(suite.conf.Validate())
	suite.conf.Fees.Delimiter = "\""
	suite.Require().Error(suite.conf.Validate())
	suite.conf.Fees.Delimiter = "\t"
	suite.Require().NoError(suite.conf.Validate())

	suite.conf.Base.RPCWorkers = 0
	suite.Require().Error(suite.conf.Validate())
}

func (suite *FeesConfigTestSuite) TestCheckSuperfluousFeesKeys() {
	ignored := CheckSuperfluousFeesKeys([]string{
		"log.level",
		"chain.rpc",
		"redis.addr",
		"base.request-retry-attempts",
		"base.rpc-workers",
		"fees.start-date",
		"fees.sort-columns",
		"database.host",
		"locate.date",
	})
	suite.ElementsMatch([]string{"database.host", "locate.date"}, ignored)
}

func TestFeesConfigSuite(t *testing.T) {
	suite.Run(t, new(FeesConfigTestSuite))
}

type LocateConfigTestSuite struct {
	suite.Suite
}

func (suite *LocateConfigTestSuite) TestTarget() {
	conf := LocateConfig{
		Chain: Chain{RPC: "ws://localhost:8090", RequestTimeout: time.Second},
		Base:  chainBase{RPCWorkers: 1, BlockTimer: 1, GenesisBlock: 1},
	}
	suite.Require().Error(conf.Validate())

	conf.Locate.Date = "2020-01-01"
	suite.Require().NoError(conf.Validate())
	target, err := conf.Target()
	suite.Require().NoError(err)
	suite.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), target)

	conf.Locate.Date = "2020-01-01T12:30:03"
	target, err = conf.Target()
	suite.Require().NoError(err)
	suite.Equal(time.Date(2020, 1, 1, 12, 30, 3, 0, time.UTC), target)

	conf.Locate.Date = "yesterday"
	suite.Require().Error(conf.Validate())

	ignored := CheckSuperfluousLocateKeys([]string{"locate.date", "fees.asset"})
	suite.Equal([]string{"fees.asset"}, ignored)
}

func TestLocateConfigSuite(t *testing.T) {
	suite.Run(t, new(LocateConfigTestSuite))
}
