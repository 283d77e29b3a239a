package rpc

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/config"
)

type RetryConfig struct {
	// MaxAttempts is the number of retries after the first attempt, -1 retries forever.
	MaxAttempts int64
	// MaxWaitSeconds caps the backoff between attempts.
	MaxWaitSeconds uint64
	// Timeout bounds every single attempt, 0 leaves attempts unbounded.
	Timeout time.Duration
}

// WithRetry runs fn until it succeeds, the context ends or the retry budget runs out.
// Each attempt gets its own timeout derived from ctx.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	maxWait := cfg.MaxWaitSeconds
	if maxWait < 2 {
		maxWait = 2
	}

	maxRetryTime := time.Duration(maxWait) * time.Second
	if maxRetryTime < 0 {
		config.Log.Warn("Detected maxRetryTime overflow, setting time to sane maximum of 30s")
		maxRetryTime = 30 * time.Second
	}

	var attempts int64
	currentBackoffDuration, maxReached := GetBackoffDurationForAttempts(attempts, maxRetryTime)

	for {
		resp, err := attempt(ctx, cfg.Timeout, fn)
		attempts++
		if err == nil {
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp, ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return resp, err
		}

		if cfg.MaxAttempts >= 0 && attempts > cfg.MaxAttempts {
			if cfg.MaxAttempts > 0 {
				config.Log.Errorf("Error calling %s, reached max retry attempts", operation)
			}
			return resp, err
		}

		config.Log.Error("Error calling "+operation+", backing off and trying again", err)
		config.Log.Debugf("Attempt %d with wait time %+v", attempts, currentBackoffDuration)

		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(currentBackoffDuration):
		}

		// guard against overflow
		if !maxReached {
			currentBackoffDuration, maxReached = GetBackoffDurationForAttempts(attempts, maxRetryTime)
		}
	}
}

func attempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func GetBackoffDurationForAttempts(numAttempts int64, maxRetryTime time.Duration) (time.Duration, bool) {
	backoffBase := 1.5
	backoffDuration := time.Duration(math.Pow(backoffBase, float64(numAttempts)) * float64(time.Second))

	maxReached := false
	if backoffDuration > maxRetryTime || backoffDuration < 0 {
		maxReached = true
		backoffDuration = maxRetryTime
	}

	return backoffDuration, maxReached
}
