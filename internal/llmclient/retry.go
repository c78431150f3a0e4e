// internal/llmclient/retry.go
package llmclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

const defaultMaxRetryElapsed = 30 * time.Second

// isTransientStatus reports whether a provider status code is worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// withRetry runs op with exponential backoff. op marks non-retryable failures
// with backoff.Permanent.
func withRetry(ctx context.Context, logger *zap.Logger, maxElapsed time.Duration, op func() error) error {
	if maxElapsed <= 0 {
		maxElapsed = defaultMaxRetryElapsed
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = maxElapsed

	notify := func(err error, wait time.Duration) {
		logger.Warn("LLM request failed, retrying.", zap.Error(err), zap.Duration("backoff", wait))
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// runForRole executes op under the retry policy of the request's role. Oracle
// decisions get exactly one attempt; the agent loop owns their retry policy.
func runForRole(ctx context.Context, logger *zap.Logger, role schemas.ModelRole, maxElapsed time.Duration, op func() error) error {
	if role == schemas.RoleOracle {
		err := op()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		return err
	}
	return withRetry(ctx, logger, maxElapsed, op)
}
