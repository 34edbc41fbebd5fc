package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kalambet/mentormirror/internal/metrics"
)

// RetryConfig bounds retries of transient provider errors.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries a transient failure up to three times, starting
// at 500ms and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

// guarded wraps a provider with an overall deadline, bounded retry of
// transient errors and call metrics. Non-transient errors are returned on
// the first attempt.
type guarded struct {
	inner   Completer
	service Service
	timeout time.Duration
	retry   RetryConfig
	metrics *metrics.Metrics
}

func (g *guarded) Complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.retry.InitialInterval
	eb.MaxInterval = g.retry.MaxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, g.retry.MaxRetries), ctx)

	attempt := 0
	op := func() (string, error) {
		attempt++
		start := time.Now()
		out, err := g.inner.Complete(ctx, prompt)
		g.metrics.ObserveCapability(string(g.service), time.Since(start), err)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		slog.Warn("transient provider error", "service", g.service, "attempt", attempt, "error", err)
		return "", err
	}

	return backoff.RetryWithData(op, policy)
}
