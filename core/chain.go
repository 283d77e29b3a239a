package core

import (
	"context"
	"time"

	"github.com/DefiantLabs/bts-fee-indexer/models"
)

// Chain is read-only access to a block source. Implementations must allow concurrent reads.
type Chain interface {
	CurrentHeight(ctx context.Context) (int64, error)
	BlockTimestamp(ctx context.Context, height int64) (time.Time, error)
	Block(ctx context.Context, height int64) (*models.Block, error)
}

// OperationResolver maps an operation type id to its report column name.
type OperationResolver interface {
	Resolve(id int) (string, error)
}
