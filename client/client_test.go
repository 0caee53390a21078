package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgodClient_Status(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/status", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Algo-API-Token"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"last-round":   uint64(1234),
			"last-version": "v40",
		})
	}))
	defer server.Close()

	algod := NewAlgodClient(server.URL, "secret", hclog.NewNullLogger())

	status, err := algod.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), status.LastRound)
	assert.Equal(t, "v40", status.LastVersion)
}

func TestAlgodClient_Block(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/blocks/1001", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"block": map[string]interface{}{
				"rnd": 1001,
				"ts":  1700000000,
				"gen": "testnet-v1.0",
				"txns": []map[string]interface{}{
					{
						"txn": map[string]interface{}{
							"type": "pay",
							"snd":  "SENDER",
							"rcv":  "RECEIVER",
							"amt":  5000,
							"fee":  1000,
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	algod := NewAlgodClient(server.URL, "", hclog.NewNullLogger())

	block, err := algod.Block(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), block.Round)
	assert.Equal(t, "testnet-v1.0", block.GenesisID)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, subscriber.TxTypePayment, block.Transactions[0].Txn.Type)
	assert.Equal(t, uint64(5000), block.Transactions[0].Txn.Amount)
}

func TestAlgodClient_BlockInvalidRound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "round not found"})
	}))
	defer server.Close()

	algod := NewAlgodClient(server.URL, "", hclog.NewNullLogger())

	_, err := algod.Block(context.Background(), 0)
	require.ErrorIs(t, err, subscriber.ErrInvalidRound)

	_, err = algod.Block(context.Background(), 99999999)
	require.ErrorIs(t, err, subscriber.ErrInvalidRound)
}

func TestAlgodClient_ServerErrorIsRetried(t *testing.T) {
	t.Parallel()

	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"last-round": uint64(5)})
	}))
	defer server.Close()

	algod := NewAlgodClient(server.URL, "", hclog.NewNullLogger())

	status, err := algod.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), status.LastRound)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAlgodClient_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
	}))
	defer server.Close()

	algod := NewAlgodClient(server.URL, "", hclog.NewNullLogger())

	_, err := algod.Status(context.Background())

	var apiErr *subscriber.APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid token", apiErr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIndexerClient_SearchTransactions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/transactions", r.URL.Path)

		query := r.URL.Query()
		assert.Equal(t, "901", query.Get("min-round"))
		assert.Equal(t, "1000", query.Get("max-round"))
		assert.Equal(t, "pay", query.Get("tx-type"))
		assert.Equal(t, "999", query.Get("currency-greater-than"))
		assert.Equal(t, "1000", query.Get("limit"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"current-round": 1000,
			"next-token":    "cursor1",
			"transactions": []map[string]interface{}{
				{
					"id":              "HIST1",
					"tx-type":         "pay",
					"sender":          "SENDER",
					"fee":             1000,
					"confirmed-round": 950,
					"payment-transaction": map[string]interface{}{
						"receiver": "RECEIVER",
						"amount":   5000,
					},
				},
			},
		})
	}))
	defer server.Close()

	indexer := NewIndexerClient(server.URL, "", hclog.NewNullLogger())

	greaterThan := uint64(999)

	result, err := indexer.SearchTransactions(context.Background(), subscriber.TransactionSearchParams{
		MinRound:            901,
		MaxRound:            1000,
		TxType:              subscriber.TxTypePayment,
		CurrencyGreaterThan: &greaterThan,
		Limit:               1000,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), result.CurrentRound)
	assert.Equal(t, "cursor1", result.NextToken)
	require.Len(t, result.Transactions, 1)

	tx := result.Transactions[0]
	assert.Equal(t, "HIST1", tx.ID)
	assert.Equal(t, subscriber.TxTypePayment, tx.Type)
	assert.Equal(t, uint64(950), tx.ConfirmedRound)
	require.NotNil(t, tx.Payment)
	assert.Equal(t, uint64(5000), tx.Payment.Amount)
}

func TestIndexerClient_ApplicationTransactionConversion(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"current-round": 1000,
			"transactions": []map[string]interface{}{
				{
					"id":      "APP1",
					"tx-type": "appl",
					"sender":  "CALLER",
					"application-transaction": map[string]interface{}{
						"application-id":   10,
						"on-completion":    "noop",
						"application-args": []string{"3q2+7w=="}, // 0xdeadbeef
					},
					"created-application-index": 999,
					"logs":                      []string{"bG9n"},
					"inner-txns": []map[string]interface{}{
						{
							"id":      "INNER1",
							"tx-type": "pay",
							"sender":  "APP_ADDR",
							"payment-transaction": map[string]interface{}{
								"receiver": "X",
								"amount":   1,
							},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	indexer := NewIndexerClient(server.URL, "", hclog.NewNullLogger())

	result, err := indexer.SearchTransactions(context.Background(), subscriber.TransactionSearchParams{})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)

	tx := result.Transactions[0]
	require.NotNil(t, tx.ApplicationCall)
	assert.Equal(t, uint64(10), tx.ApplicationCall.ApplicationID)
	assert.Equal(t, subscriber.OnCompletionNoOp, tx.ApplicationCall.OnCompletion)
	assert.Equal(t, [][]byte{{0xde, 0xad, 0xbe, 0xef}}, tx.ApplicationCall.Args)
	assert.Equal(t, uint64(999), tx.ApplicationCall.CreatedApplicationID)
	assert.Equal(t, []string{"bG9n"}, tx.ApplicationCall.Logs)

	require.Len(t, tx.InnerTxns, 1)
	assert.Equal(t, "INNER1", tx.InnerTxns[0].ID)
}
