package subscriber

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transport level failures after retries are exhausted
	ErrNetwork = errors.New("network error")

	// ErrInvalidRound is returned for non-positive or unknown rounds
	ErrInvalidRound = errors.New("invalid round")

	// ErrConfiguration is returned when a subscription config does not validate
	ErrConfiguration = errors.New("invalid configuration")

	// ErrBehindTip is the fatal error of the fail sync behaviour: the watermark
	// lags the tip by more than the configured round limit
	ErrBehindTip = errors.New("behind tip")

	// ErrAlreadyRunning is returned by Start when the subscriber loop is active
	ErrAlreadyRunning = errors.New("subscriber already running")
)

// APIError is a non-2xx response from an upstream source
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status code %d", e.Status)
	}

	return fmt.Sprintf("status code %d: %s", e.Status, e.Body)
}
