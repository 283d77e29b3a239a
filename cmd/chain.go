package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/DefiantLabs/bts-fee-indexer/chain"
	"github.com/DefiantLabs/bts-fee-indexer/config"
	"github.com/DefiantLabs/bts-fee-indexer/core"
	"github.com/DefiantLabs/bts-fee-indexer/rpc"
	"github.com/redis/go-redis/v9"
)

// connectChain dials the node, wraps it with retries and, when redis is configured,
// a block cache. The returned func releases every connection that was opened.
func connectChain(ctx context.Context, chainConf config.Chain, redisConf config.Redis, retry rpc.RetryConfig) (core.Chain, func(), error) {
	client, err := rpc.NewClient(ctx, chainConf.RPC, chainConf.RequestTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", chainConf.RPC, err)
	}

	retry.Timeout = chainConf.RequestTimeout
	node := chain.NewNodeChain(client, retry)

	if redisConf.Addr == "" {
		return node, closeAll(client.Close), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConf.Addr,
		Password: redisConf.Psw,
		DB:       redisConf.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		closeAll(client.Close, rdb.Close)()
		return nil, nil, fmt.Errorf("connect to redis %s: %w", redisConf.Addr, err)
	}
	config.Log.Infof("Caching blocks in redis at %s", redisConf.Addr)

	return chain.NewCachedChain(node, rdb, cachePrefix(chainConf.RPC), redisConf.MinDepth), closeAll(client.Close, rdb.Close), nil
}

// cachePrefix keys the cache by node host so that different networks never share entries.
func cachePrefix(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}

func closeAll(closers ...func() error) func() {
	return func() {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		if err := errors.Join(errs...); err != nil {
			config.Log.Warn("Error closing connections", err)
		}
	}
}

func retryConfig(attempts int64, maxWait uint64) rpc.RetryConfig {
	return rpc.RetryConfig{MaxAttempts: attempts, MaxWaitSeconds: maxWait}
}
