package subscriber

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type BlockSourceMock struct {
	mock.Mock
	StatusFn           func(ctx context.Context) (NodeStatus, error)
	BlockFn            func(ctx context.Context, round uint64) (Block, error)
	StatusAfterBlockFn func(ctx context.Context, round uint64) (NodeStatus, error)
}

// Status implements BlockSource.
func (m *BlockSourceMock) Status(ctx context.Context) (NodeStatus, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}

	args := m.Called()

	return args.Get(0).(NodeStatus), args.Error(1) //nolint:forcetypeassert
}

// Block implements BlockSource.
func (m *BlockSourceMock) Block(ctx context.Context, round uint64) (Block, error) {
	if m.BlockFn != nil {
		return m.BlockFn(ctx, round)
	}

	args := m.Called(round)

	return args.Get(0).(Block), args.Error(1) //nolint:forcetypeassert
}

// StatusAfterBlock implements BlockSource.
func (m *BlockSourceMock) StatusAfterBlock(ctx context.Context, round uint64) (NodeStatus, error) {
	if m.StatusAfterBlockFn != nil {
		return m.StatusAfterBlockFn(ctx, round)
	}

	args := m.Called(round)

	return args.Get(0).(NodeStatus), args.Error(1) //nolint:forcetypeassert
}

var _ BlockSource = (*BlockSourceMock)(nil)

type HistorySourceMock struct {
	mock.Mock
	SearchTransactionsFn func(ctx context.Context, params TransactionSearchParams) (TransactionSearchResult, error)
}

// SearchTransactions implements HistorySource.
func (m *HistorySourceMock) SearchTransactions(
	ctx context.Context, params TransactionSearchParams,
) (TransactionSearchResult, error) {
	if m.SearchTransactionsFn != nil {
		return m.SearchTransactionsFn(ctx, params)
	}

	args := m.Called(params)

	return args.Get(0).(TransactionSearchResult), args.Error(1) //nolint:forcetypeassert
}

var _ HistorySource = (*HistorySourceMock)(nil)

type WatermarkStoreMock struct {
	mock.Mock
	LoadFn func(ctx context.Context) (uint64, error)
	SaveFn func(ctx context.Context, watermark uint64) error
}

// Load implements WatermarkStore.
func (m *WatermarkStoreMock) Load(ctx context.Context) (uint64, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx)
	}

	args := m.Called()

	return args.Get(0).(uint64), args.Error(1) //nolint:forcetypeassert
}

// Save implements WatermarkStore.
func (m *WatermarkStoreMock) Save(ctx context.Context, watermark uint64) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, watermark)
	}

	return m.Called(watermark).Error(0)
}

var _ WatermarkStore = (*WatermarkStoreMock)(nil)
