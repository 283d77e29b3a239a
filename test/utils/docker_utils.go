package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randResourceNameSuffix(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

type TestDockerRedis struct {
	Client   *redis.Client
	Addr     string
	pool     *dockertest.Pool
	resource *dockertest.Resource
}

// SetupTestRedis starts a throwaway redis container. It errors when docker is unreachable,
// callers usually skip in that case.
func SetupTestRedis() (*TestDockerRedis, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}

	err = pool.Client.Ping()
	if err != nil {
		return nil, err
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       fmt.Sprintf("redis-%s", randResourceNameSuffix(10)),
		Repository: "redis",
		Tag:        "7-alpine",
	})
	if err != nil {
		return nil, err
	}

	// hard kill the container even if the test binary dies
	_ = resource.Expire(120)

	addr := fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp"))
	client := redis.NewClient(&redis.Options{Addr: addr})

	pool.MaxWait = 30 * time.Second
	err = pool.Retry(func() error {
		return client.Ping(context.Background()).Err()
	})
	if err != nil {
		_ = pool.Purge(resource)
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	return &TestDockerRedis{Client: client, Addr: addr, pool: pool, resource: resource}, nil
}

func (r *TestDockerRedis) Close() error {
	_ = r.Client.Close()
	return r.pool.Purge(r.resource)
}
