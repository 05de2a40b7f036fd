package fetch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 60 * time.Second

	// maxRetryAfter caps how long a Retry-After header may stall a flow.
	maxRetryAfter = 5 * time.Minute
)

// RetryPolicy is a fixed-delay retry policy: up to MaxRetries extra
// attempts after the first, Delay apart. Transport failures and transient
// statuses are retried; everything else is returned immediately.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy retries 3 times, 60 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, Delay: DefaultRetryDelay}
}

// CheckRetry implements retryablehttp.CheckRetry.
func (p RetryPolicy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// defers to retryablehttp for errors that will never succeed,
		// such as bad schemes or TLS certificate failures
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return Classify(resp.StatusCode).Retryable(), nil
}

// Backoff implements retryablehttp.Backoff. The delay is fixed unless the
// upstream asks for longer with Retry-After.
func (p RetryPolicy) Backoff(_, _ time.Duration, _ int, resp *http.Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait := time.Duration(secs) * time.Second
			if wait > maxRetryAfter {
				wait = maxRetryAfter
			}
			if wait > p.Delay {
				return wait
			}
		}
	}
	return p.Delay
}
