package subscriber

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(
	config *SubscriptionConfig, blockSource BlockSource, historySource HistorySource,
) *fetcher {
	config.PopulateDefaults()

	return &fetcher{
		blockSource:   blockSource,
		historySource: historySource,
		config:        config,
		decoder:       NewEventDecoder(config.Arc28Events, hclog.NewNullLogger()),
		logger:        hclog.NewNullLogger(),
	}
}

func paymentBlock(round uint64, sender, receiver string, amount uint64) Block {
	return Block{
		Round:       round,
		Timestamp:   1700000000,
		GenesisID:   "testnet-v1.0",
		GenesisHash: []byte{1},
		Transactions: []SignedTxnInBlock{
			{
				Txn: RawTransaction{
					Type:     TxTypePayment,
					Sender:   sender,
					Receiver: receiver,
					Amount:   amount,
					Fee:      1000,
				},
			},
		},
	}
}

func TestFetcher_BlockPathKeepsRoundOrder(t *testing.T) {
	t.Parallel()

	config := &SubscriptionConfig{
		Filters: []NamedFilter{
			{Name: "payments", Filter: Filter{Type: TxTypePayment}},
		},
	}

	blockSource := &BlockSourceMock{
		BlockFn: func(_ context.Context, round uint64) (Block, error) {
			return paymentBlock(round, fmt.Sprintf("SENDER%d", round), "RECEIVER", 100), nil
		},
	}

	f := newTestFetcher(config, blockSource, nil)

	matches, err := f.execute(context.Background(), Plan{
		Source: SourceBlock,
		Range:  RoundRange{From: 1001, To: 1010},
	})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0], 10)

	for i, tx := range matches[0] {
		assert.Equal(t, uint64(1001+i), tx.ConfirmedRound) //nolint:gosec
		assert.NotEmpty(t, tx.BalanceChanges)
	}
}

func TestFetcher_BlockPathFailureFailsWholePoll(t *testing.T) {
	t.Parallel()

	config := &SubscriptionConfig{
		Filters: []NamedFilter{
			{Name: "payments", Filter: Filter{Type: TxTypePayment}},
		},
	}

	fetchErr := errors.New("connection refused")

	blockSource := &BlockSourceMock{
		BlockFn: func(_ context.Context, round uint64) (Block, error) {
			if round == 1005 {
				return Block{}, fetchErr
			}

			return paymentBlock(round, "SENDER", "RECEIVER", 100), nil
		},
	}

	f := newTestFetcher(config, blockSource, nil)

	_, err := f.execute(context.Background(), Plan{
		Source: SourceBlock,
		Range:  RoundRange{From: 1001, To: 1010},
	})

	require.ErrorIs(t, err, fetchErr)
}

func TestFetcher_BlockPathMatchesInnerTransactions(t *testing.T) {
	t.Parallel()

	config := &SubscriptionConfig{
		Filters: []NamedFilter{
			{Name: "payments", Filter: Filter{Type: TxTypePayment}},
		},
	}

	block := Block{
		Round:       1001,
		Timestamp:   1700000000,
		GenesisID:   "testnet-v1.0",
		GenesisHash: []byte{1},
		Transactions: []SignedTxnInBlock{
			{
				Txn: RawTransaction{
					Type:          TxTypeApplicationCall,
					Sender:        "CALLER",
					ApplicationID: 10,
					Fee:           1000,
				},
				EvalDelta: &EvalDelta{
					InnerTxns: []SignedTxnInBlock{
						{
							TxID: "INNER_PAY1",
							Txn: RawTransaction{
								Type:     TxTypePayment,
								Sender:   "INNER_SENDER",
								Receiver: "INNER_RECEIVER",
								Amount:   500000,
							},
						},
					},
				},
			},
		},
	}

	blockSource := &BlockSourceMock{
		BlockFn: func(_ context.Context, round uint64) (Block, error) {
			return block, nil
		},
	}

	f := newTestFetcher(config, blockSource, nil)

	matches, err := f.execute(context.Background(), Plan{
		Source: SourceBlock,
		Range:  RoundRange{From: 1001, To: 1001},
	})

	require.NoError(t, err)
	require.Len(t, matches[0], 1)

	inner := matches[0][0]
	assert.Equal(t, "INNER_PAY1", inner.ID)
	assert.Equal(t, uint64(1), inner.IntraRoundOffset)
}

func TestFetcher_HistoryPathFollowsPagination(t *testing.T) {
	t.Parallel()

	config := &SubscriptionConfig{
		Filters: []NamedFilter{
			{Name: "payments", Filter: Filter{Type: TxTypePayment}},
		},
	}

	pages := map[string]TransactionSearchResult{
		"": {
			NextToken: "page2",
			Transactions: []*Transaction{
				{ID: "TX1", Type: TxTypePayment, Sender: "A", Payment: &PaymentFields{Amount: 1, Receiver: "B"}},
			},
		},
		"page2": {
			NextToken: "page3",
			Transactions: []*Transaction{
				{ID: "TX2", Type: TxTypePayment, Sender: "A", Payment: &PaymentFields{Amount: 2, Receiver: "B"}},
			},
		},
		"page3": {
			Transactions: []*Transaction{
				{ID: "TX3", Type: TxTypePayment, Sender: "A", Payment: &PaymentFields{Amount: 3, Receiver: "B"}},
			},
		},
	}

	historySource := &HistorySourceMock{
		SearchTransactionsFn: func(_ context.Context, params TransactionSearchParams) (TransactionSearchResult, error) {
			result, ok := pages[params.NextToken]
			require.True(t, ok, "unexpected continuation token %q", params.NextToken)

			return result, nil
		},
	}

	f := newTestFetcher(config, &BlockSourceMock{}, historySource)

	matches, err := f.execute(context.Background(), Plan{
		Source: SourceHistory,
		Range:  RoundRange{From: 901, To: 1000},
	})

	require.NoError(t, err)
	require.Len(t, matches[0], 3)
	assert.Equal(t, "TX1", matches[0][0].ID)
	assert.Equal(t, "TX2", matches[0][1].ID)
	assert.Equal(t, "TX3", matches[0][2].ID)
}

func TestFetcher_HistoryPathAppliesPostFilter(t *testing.T) {
	t.Parallel()

	minAmount := uint64(1000)
	config := &SubscriptionConfig{
		Filters: []NamedFilter{
			{Name: "payments", Filter: Filter{
				Type:      TxTypePayment,
				Receiver:  "WANTED",
				MinAmount: &minAmount,
			}},
		},
	}

	historySource := &HistorySourceMock{
		SearchTransactionsFn: func(_ context.Context, params TransactionSearchParams) (TransactionSearchResult, error) {
			return TransactionSearchResult{
				Transactions: []*Transaction{
					{ID: "KEEP", Type: TxTypePayment, Sender: "A",
						Payment: &PaymentFields{Amount: 5000, Receiver: "WANTED"}},
					{ID: "DROP", Type: TxTypePayment, Sender: "A",
						Payment: &PaymentFields{Amount: 5000, Receiver: "OTHER"}},
				},
			}, nil
		},
	}

	f := newTestFetcher(config, &BlockSourceMock{}, historySource)

	matches, err := f.execute(context.Background(), Plan{
		Source: SourceHistory,
		Range:  RoundRange{From: 901, To: 1000},
	})

	require.NoError(t, err)
	require.Len(t, matches[0], 1)
	assert.Equal(t, "KEEP", matches[0][0].ID)
}

func TestPreFilterParams(t *testing.T) {
	t.Parallel()

	minAmount, maxAmount := uint64(1000), uint64(9000)
	appID, assetID := uint64(10), uint64(77)

	filter := &Filter{
		Type:       TxTypePayment,
		Sender:     "SENDER",
		Receiver:   "RECEIVER",
		NotePrefix: []byte("np"),
		AppID:      &appID,
		AssetID:    &assetID,
		MinAmount:  &minAmount,
		MaxAmount:  &maxAmount,
	}

	params := preFilterParams(filter, RoundRange{From: 901, To: 1000})

	assert.Equal(t, uint64(901), params.MinRound)
	assert.Equal(t, uint64(1000), params.MaxRound)
	assert.Equal(t, TxTypePayment, params.TxType)

	// sender wins over receiver; receiver stays a post-filter concern
	assert.Equal(t, "SENDER", params.Address)
	assert.Equal(t, AddressRoleSender, params.AddressRole)

	assert.Equal(t, []byte("np"), params.NotePrefix)
	assert.Equal(t, uint64(10), params.ApplicationID)
	assert.Equal(t, uint64(77), params.AssetID)

	// bounds are widened by one: the source comparisons are strict
	require.NotNil(t, params.CurrencyGreaterThan)
	assert.Equal(t, uint64(999), *params.CurrencyGreaterThan)
	require.NotNil(t, params.CurrencyLessThan)
	assert.Equal(t, uint64(9001), *params.CurrencyLessThan)

	assert.Equal(t, uint64(1000), params.Limit)
}

func TestPreFilterParams_ReceiverOnly(t *testing.T) {
	t.Parallel()

	params := preFilterParams(&Filter{Receiver: "RECEIVER"}, RoundRange{From: 1, To: 2})

	assert.Equal(t, "RECEIVER", params.Address)
	assert.Equal(t, AddressRoleReceiver, params.AddressRole)
	assert.Nil(t, params.CurrencyGreaterThan)
	assert.Nil(t, params.CurrencyLessThan)
}
