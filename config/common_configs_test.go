package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (suite *ConfigTestSuite) TestValidateChainConf() {
	conf := Chain{RPC: "", RequestTimeout: time.Second}

	_, err := validateChainConf(conf)
	suite.Require().Error(err)

	conf.RPC = "ftp://node.example.com"
	_, err = validateChainConf(conf)
	suite.Require().Error(err)

	conf.RPC = "wss://"
	_, err = validateChainConf(conf)
	suite.Require().Error(err)

	conf.RPC = "wss://node.example.com/ws/"
	validated, err := validateChainConf(conf)
	suite.Require().NoError(err)
	suite.Equal("wss://node.example.com/ws", validated.RPC)

	conf.RequestTimeout = 0
	_, err = validateChainConf(conf)
	suite.Require().Error(err)
}

func (suite *ConfigTestSuite) TestValidateRedisConf() {
	suite.Require().NoError(validateRedisConf(Redis{}), "redis is optional")

	conf := Redis{Addr: "localhost"}
	suite.Require().Error(validateRedisConf(conf))

	conf.Addr = "localhost:6379"
	suite.Require().NoError(validateRedisConf(conf))

	conf.MinDepth = -1
	suite.Require().Error(validateRedisConf(conf))
}

func (suite *ConfigTestSuite) TestValidateRetryConf() {
	suite.Require().Error(validateRetryConf(retryBase{RequestRetryAttempts: -2}))
	suite.Require().NoError(validateRetryConf(retryBase{RequestRetryAttempts: -1}))
	suite.Require().NoError(validateRetryConf(retryBase{RequestRetryAttempts: 5}))
}

func (suite *ConfigTestSuite) TestGetValidConfigKeys() {
	keys := getValidConfigKeys(chainBase{}, "base")
	suite.ElementsMatch([]string{"base.rpc-workers", "base.block-timer", "base.genesis-block"}, keys)

	keys = getValidConfigKeys(log{}, "")
	suite.ElementsMatch([]string{"log.level", "log.path", "log.pretty"}, keys)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
