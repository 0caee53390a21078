package common

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	defaultRetryCount    = 3
	defaultRetryWaitTime = time.Millisecond * 500
	defaultBackoffFactor = 2.0
)

var (
	ErrRetryTimeout = errors.New("timeout")
	defaultLogger   = hclog.NewNullLogger()
)

// RetryConfig defines ExecuteWithRetry configuration
type RetryConfig struct {
	retryCount       int
	retryWaitTime    time.Duration
	backoffFactor    float64
	jitter           bool
	isRetryableError func(err error) bool
	logger           hclog.Logger
}

// RetryConfigOption defines ExecuteWithRetry configuration option
type RetryConfigOption func(c *RetryConfig)

func WithRetryCount(retryCount int) RetryConfigOption {
	return func(c *RetryConfig) {
		c.retryCount = retryCount
	}
}

func WithRetryWaitTime(retryWaitTime time.Duration) RetryConfigOption {
	return func(c *RetryConfig) {
		c.retryWaitTime = retryWaitTime
	}
}

// WithBackoffFactor multiplies the wait time by factor after every failed
// attempt. Factor 1 keeps a constant wait.
func WithBackoffFactor(factor float64) RetryConfigOption {
	return func(c *RetryConfig) {
		c.backoffFactor = factor
	}
}

// WithJitter randomizes every wait to a value in [wait/2, wait]
func WithJitter(jitter bool) RetryConfigOption {
	return func(c *RetryConfig) {
		c.jitter = jitter
	}
}

func WithIsRetryableError(fn func(err error) bool) RetryConfigOption {
	return func(c *RetryConfig) {
		c.isRetryableError = fn
	}
}

func WithLogger(logger hclog.Logger) RetryConfigOption {
	return func(c *RetryConfig) {
		c.logger = logger
	}
}

// ExecuteWithRetry attempts to execute a provided handler function multiple
// times with retries in case of failure, respecting a wait time between
// attempts that grows by the backoff factor.
func ExecuteWithRetry[T any](
	ctx context.Context, handler func(context.Context) (T, error), options ...RetryConfigOption,
) (result T, err error) {
	config := RetryConfig{
		retryCount:       defaultRetryCount,
		retryWaitTime:    defaultRetryWaitTime,
		backoffFactor:    defaultBackoffFactor,
		jitter:           true,
		isRetryableError: isRetryableErrorDefault,
		logger:           defaultLogger,
	}

	for _, opt := range options {
		opt(&config)
	}

	waitTime := config.retryWaitTime

	for count := 0; count <= config.retryCount; count++ {
		result, err = handler(ctx)
		if err == nil {
			return result, nil
		}

		if !config.isRetryableError(err) {
			return result, err
		}

		config.logger.Info("ExecuteWithRetry failed. Retrying...", "attempt", count+1, "err", err)

		sleep := waitTime
		if config.jitter {
			sleep = waitTime/2 + time.Duration(rand.Int63n(int64(waitTime/2)+1)) //nolint:gosec
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(sleep):
		}

		waitTime = time.Duration(float64(waitTime) * config.backoffFactor)
	}

	return result, errors.Join(ErrRetryTimeout, err)
}

// IsContextDoneErr returns true if the error is due to the context being
// cancelled or expired. This is useful for determining if a function should
// retry.
func IsContextDoneErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isRetryableErrorDefault(err error) bool {
	// Context was explicitly canceled or deadline exceeded; not retryable
	if IsContextDoneErr(err) {
		return false
	}

	if _, isNetError := err.(net.Error); isNetError { //nolint:errorlint
		return true
	}

	return false
}
