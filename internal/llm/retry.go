// Package llm - retry.go wraps the single network call site with an explicit
// retry policy instead of decorating individual methods.
package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of a transport/API failure with exponential
// backoff. The zero value is not usable; start from DefaultRetryPolicy.
type RetryPolicy struct {
	MaxAttempts     int           // total attempts, including the first
	InitialInterval time.Duration // first backoff wait
	MaxInterval     time.Duration // backoff cap
}

// DefaultRetryPolicy returns the pipeline's standard policy: 3 attempts with
// exponential backoff starting at 4s and capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 4 * time.Second,
		MaxInterval:     10 * time.Second,
	}
}

// newBackOff builds the backoff schedule for one guarded call.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// GenerateJSON calls client.GenerateJSON under the policy, retrying failed
// attempts until the attempt cap is reached or the context is cancelled.
func (p RetryPolicy) GenerateJSON(ctx context.Context, client Client, prompt string, tier ModelTier) (string, error) {
	var out string
	op := func() error {
		text, err := client.GenerateJSON(ctx, prompt, tier)
		if err != nil {
			return err
		}
		out = text
		return nil
	}

	if err := backoff.Retry(op, p.newBackOff(ctx)); err != nil {
		return "", err
	}
	return out, nil
}
