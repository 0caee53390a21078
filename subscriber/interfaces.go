package subscriber

import "context"

// BlockSource retrieves raw blocks and node status. Used for recent rounds
// and tip following.
type BlockSource interface {
	Status(ctx context.Context) (NodeStatus, error)
	Block(ctx context.Context, round uint64) (Block, error)
	StatusAfterBlock(ctx context.Context, round uint64) (NodeStatus, error)
}

// HistorySource is a paginated search over a round range with coarse
// pre-filter hints. Optional; enables catchup-with-indexer.
type HistorySource interface {
	SearchTransactions(ctx context.Context, params TransactionSearchParams) (TransactionSearchResult, error)
}

// WatermarkStore persists the largest fully processed round. Both methods
// are idempotent.
type WatermarkStore interface {
	Load(ctx context.Context) (uint64, error)
	Save(ctx context.Context, watermark uint64) error
}
