package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/util"
	"github.com/spf13/cobra"
)

// These configs are used across multiple commands, and are not specific to a single command
type log struct {
	Level  string
	Path   string
	Pretty bool
}

type Chain struct {
	RPC            string        `mapstructure:"rpc"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Psw      string `mapstructure:"psw"`
	DB       int    `mapstructure:"db"`
	MinDepth int64  `mapstructure:"min-depth"`
}

type retryBase struct {
	RequestRetryAttempts int64  `mapstructure:"request-retry-attempts"`
	RequestRetryMaxWait  uint64 `mapstructure:"request-retry-max-wait"`
}

func SetupLogFlags(logConf *log, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&logConf.Level, "log.level", "info", "log level")
	cmd.PersistentFlags().BoolVar(&logConf.Pretty, "log.pretty", false, "pretty logs")
	cmd.PersistentFlags().StringVar(&logConf.Path, "log.path", "", "log path (logs are only written to stdout when unset)")
}

func SetupChainFlags(chainConf *Chain, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&chainConf.RPC, "chain.rpc", "", "node API endpoint (http(s):// or ws(s)://)")
	cmd.PersistentFlags().DurationVar(&chainConf.RequestTimeout, "chain.request-timeout", 30*time.Second, "timeout for a single node API request")
}

func SetupRedisFlags(redisConf *Redis, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&redisConf.Addr, "redis.addr", "", "redis address for the block cache (cache disabled when unset)")
	cmd.PersistentFlags().StringVar(&redisConf.Psw, "redis.psw", "", "redis password")
	cmd.PersistentFlags().IntVar(&redisConf.DB, "redis.db", 0, "redis database number")
	cmd.PersistentFlags().Int64Var(&redisConf.MinDepth, "redis.min-depth", 100, "blocks closer than this to the head are never cached")
}

func SetupRetryFlags(retryConf *retryBase, cmd *cobra.Command) {
	cmd.PersistentFlags().Int64Var(&retryConf.RequestRetryAttempts, "base.request-retry-attempts", 3, "number of node API retries to make (-1 retries forever)")
	cmd.PersistentFlags().Uint64Var(&retryConf.RequestRetryMaxWait, "base.request-retry-max-wait", 30, "max retry incremental backoff wait time in seconds")
}

func validateChainConf(chainConf Chain) (Chain, error) {
	if util.StrNotSet(chainConf.RPC) {
		return chainConf, errors.New("chain rpc must be set")
	}
	u, err := url.Parse(chainConf.RPC)
	if err != nil {
		return chainConf, fmt.Errorf("invalid chain rpc %q: %w", chainConf.RPC, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return chainConf, fmt.Errorf("invalid chain rpc %q, scheme must be one of http, https, ws, wss", chainConf.RPC)
	}
	if u.Host == "" {
		return chainConf, fmt.Errorf("invalid chain rpc %q, host must be set", chainConf.RPC)
	}
	chainConf.RPC = strings.TrimSuffix(chainConf.RPC, "/")
	if chainConf.RequestTimeout <= 0 {
		return chainConf, errors.New("chain request-timeout must be positive")
	}
	return chainConf, nil
}

func validateRedisConf(redisConf Redis) error {
	if util.StrNotSet(redisConf.Addr) {
		return nil
	}
	if !strings.Contains(redisConf.Addr, ":") {
		return fmt.Errorf("invalid redis addr %q, expected host:port", redisConf.Addr)
	}
	if redisConf.MinDepth < 0 {
		return errors.New("redis min-depth must be 0 or greater")
	}
	return nil
}

func validateRetryConf(retryConf retryBase) error {
	if retryConf.RequestRetryAttempts < -1 {
		return errors.New("request-retry-attempts must be -1 or greater")
	}
	return nil
}

// Reads the Viper mapstructure tag to get the valid keys for a given config struct
func getValidConfigKeys(section any, baseName string) (keys []string) {
	v := reflect.ValueOf(section)
	typeOfS := v.Type()

	if baseName == "" {
		baseName = strings.ToLower(typeOfS.Name())
	}

	for i := 0; i < v.NumField(); i++ {
		field := typeOfS.Field(i)

		// embedded structs contribute their own keys
		if !strings.HasPrefix(field.Type.String(), "config.") {
			name := field.Tag.Get("mapstructure")
			if name == "" {
				name = field.Name
			}

			key := fmt.Sprintf("%v.%v", baseName, strings.ReplaceAll(strings.ToLower(name), " ", ""))
			keys = append(keys, key)
		}
	}
	return
}

func addLogConfigKeys(validKeys map[string]struct{}) {
	for _, key := range getValidConfigKeys(log{}, "") {
		validKeys[key] = struct{}{}
	}
}

func addChainConfigKeys(validKeys map[string]struct{}) {
	for _, key := range getValidConfigKeys(Chain{}, "chain") {
		validKeys[key] = struct{}{}
	}
}

func addRedisConfigKeys(validKeys map[string]struct{}) {
	for _, key := range getValidConfigKeys(Redis{}, "redis") {
		validKeys[key] = struct{}{}
	}
}

func addRetryConfigKeys(validKeys map[string]struct{}) {
	for _, key := range getValidConfigKeys(retryBase{}, "base") {
		validKeys[key] = struct{}{}
	}
}

func ignoredKeys(keys []string, validKeys map[string]struct{}) []string {
	ignored := make([]string, 0)
	for _, key := range keys {
		if _, ok := validKeys[key]; !ok {
			ignored = append(ignored, key)
		}
	}
	return ignored
}
