package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Ethernal-Tech/algorand-infrastructure/common"
	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"github.com/hashicorp/go-hclog"
)

const tokenHeader = "X-Algo-API-Token" //nolint:gosec

// getJSON performs one GET against an upstream source, retrying transient
// failures with exponential backoff, and decodes the response body into out.
func getJSON(
	ctx context.Context, httpClient *http.Client, url, token string, out interface{}, logger hclog.Logger,
) error {
	_, err := common.ExecuteWithRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, getJSONOnce(ctx, httpClient, url, token, out)
	}, common.WithIsRetryableError(isRetryableError), common.WithLogger(logger))

	return err
}

func getJSONOnce(
	ctx context.Context, httpClient *http.Client, url, token string, out interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.Join(subscriber.ErrNetwork, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return getErrorFromResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	return nil
}

func getErrorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))

	var errResponse struct {
		Message string `json:"message"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &errResponse); err == nil && errResponse.Message != "" {
		message = errResponse.Message
	}

	return &subscriber.APIError{
		Status: resp.StatusCode,
		Body:   message,
	}
}

// isRetryableError retries transport failures and server-side errors; client
// errors and cancellations surface immediately
func isRetryableError(err error) bool {
	if common.IsContextDoneErr(err) {
		return false
	}

	var apiErr *subscriber.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}

	return errors.Is(err, subscriber.ErrNetwork)
}
