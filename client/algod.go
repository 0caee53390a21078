package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"github.com/hashicorp/go-hclog"
)

// AlgodClient is a block source over the node REST API
type AlgodClient struct {
	url        string
	token      string
	httpClient *http.Client
	logger     hclog.Logger
}

var _ subscriber.BlockSource = (*AlgodClient)(nil)

func NewAlgodClient(url, token string, logger hclog.Logger) *AlgodClient {
	return &AlgodClient{
		url:        strings.TrimSuffix(url, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: time.Second * 90},
		logger:     logger,
	}
}

func (a *AlgodClient) Status(ctx context.Context) (subscriber.NodeStatus, error) {
	var status subscriber.NodeStatus

	if err := getJSON(ctx, a.httpClient, a.url+"/v2/status", a.token, &status, a.logger); err != nil {
		return subscriber.NodeStatus{}, err
	}

	return status, nil
}

func (a *AlgodClient) Block(ctx context.Context, round uint64) (subscriber.Block, error) {
	if round == 0 {
		return subscriber.Block{}, errors.Join(subscriber.ErrInvalidRound,
			errors.New("round must be positive"))
	}

	var response struct {
		Block subscriber.Block `json:"block"`
	}

	url := fmt.Sprintf("%s/v2/blocks/%d?format=json", a.url, round)

	if err := getJSON(ctx, a.httpClient, url, a.token, &response, a.logger); err != nil {
		var apiErr *subscriber.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return subscriber.Block{}, errors.Join(subscriber.ErrInvalidRound, err)
		}

		return subscriber.Block{}, err
	}

	// the node leaves the round off the genesis block
	if response.Block.Round == 0 && round != 0 {
		response.Block.Round = round
	}

	return response.Block, nil
}

// StatusAfterBlock blocks until the node knows a round strictly greater than
// the given one, or the node-side wait expires. Either way the returned
// status is current.
func (a *AlgodClient) StatusAfterBlock(ctx context.Context, round uint64) (subscriber.NodeStatus, error) {
	var status subscriber.NodeStatus

	url := fmt.Sprintf("%s/v2/status/wait-for-block-after/%d", a.url, round)

	if err := getJSON(ctx, a.httpClient, url, a.token, &status, a.logger); err != nil {
		return subscriber.NodeStatus{}, err
	}

	return status, nil
}
