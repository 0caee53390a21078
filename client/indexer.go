package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"github.com/hashicorp/go-hclog"
)

// IndexerClient is a history source over the indexer REST API
type IndexerClient struct {
	url        string
	token      string
	httpClient *http.Client
	logger     hclog.Logger
}

var _ subscriber.HistorySource = (*IndexerClient)(nil)

func NewIndexerClient(url, token string, logger hclog.Logger) *IndexerClient {
	return &IndexerClient{
		url:        strings.TrimSuffix(url, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: time.Second * 90},
		logger:     logger,
	}
}

func (i *IndexerClient) SearchTransactions(
	ctx context.Context, params subscriber.TransactionSearchParams,
) (subscriber.TransactionSearchResult, error) {
	var response struct {
		CurrentRound uint64               `json:"current-round"`
		NextToken    string               `json:"next-token"`
		Transactions []indexerTransaction `json:"transactions"`
	}

	requestURL := fmt.Sprintf("%s/v2/transactions?%s", i.url, searchQuery(params).Encode())

	if err := getJSON(ctx, i.httpClient, requestURL, i.token, &response, i.logger); err != nil {
		return subscriber.TransactionSearchResult{}, err
	}

	result := subscriber.TransactionSearchResult{
		CurrentRound: response.CurrentRound,
		NextToken:    response.NextToken,
		Transactions: make([]*subscriber.Transaction, len(response.Transactions)),
	}

	for j := range response.Transactions {
		tx, err := response.Transactions[j].toCanonical()
		if err != nil {
			return subscriber.TransactionSearchResult{}, err
		}

		result.Transactions[j] = tx
	}

	return result, nil
}

// Health reports indexer availability. Not used by the subscription engine.
func (i *IndexerClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var response map[string]interface{}

	if err := getJSON(ctx, i.httpClient, i.url+"/health", i.token, &response, i.logger); err != nil {
		return nil, err
	}

	return response, nil
}

func searchQuery(params subscriber.TransactionSearchParams) url.Values {
	query := url.Values{}

	if params.MinRound > 0 {
		query.Set("min-round", strconv.FormatUint(params.MinRound, 10))
	}

	if params.MaxRound > 0 {
		query.Set("max-round", strconv.FormatUint(params.MaxRound, 10))
	}

	if params.Address != "" {
		query.Set("address", params.Address)

		if params.AddressRole != "" {
			query.Set("address-role", string(params.AddressRole))
		}
	}

	if params.TxType != "" {
		query.Set("tx-type", string(params.TxType))
	}

	if params.AssetID > 0 {
		query.Set("asset-id", strconv.FormatUint(params.AssetID, 10))
	}

	if params.ApplicationID > 0 {
		query.Set("application-id", strconv.FormatUint(params.ApplicationID, 10))
	}

	if len(params.NotePrefix) > 0 {
		query.Set("note-prefix", base64.StdEncoding.EncodeToString(params.NotePrefix))
	}

	if params.CurrencyGreaterThan != nil {
		query.Set("currency-greater-than", strconv.FormatUint(*params.CurrencyGreaterThan, 10))
	}

	if params.CurrencyLessThan != nil {
		query.Set("currency-less-than", strconv.FormatUint(*params.CurrencyLessThan, 10))
	}

	if params.Limit > 0 {
		query.Set("limit", strconv.FormatUint(params.Limit, 10))
	}

	if params.NextToken != "" {
		query.Set("next", params.NextToken)
	}

	return query
}
