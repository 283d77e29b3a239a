package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/DefiantLabs/bts-fee-indexer/operations"
)

var (
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrInvalidBlockRange    = errors.New("invalid block range")
	ErrChainRead            = errors.New("chain read failed")
	ErrUnknownOperationType = operations.ErrUnknownOperationType
)

// ChainReadError records which read failed. It matches ErrChainRead as well as its cause.
type ChainReadError struct {
	Op     string
	Height int64
	Err    error
}

func (e *ChainReadError) Error() string {
	if e.Height > 0 {
		return fmt.Sprintf("%s: %s at height %d: %v", ErrChainRead, e.Op, e.Height, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrChainRead, e.Op, e.Err)
}

func (e *ChainReadError) Unwrap() []error {
	return []error{ErrChainRead, e.Err}
}

// chainRead wraps a failed read, passing cancellation through untouched.
func chainRead(ctx context.Context, op string, height int64, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &ChainReadError{Op: op, Height: height, Err: err}
}
