package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// TransientError marks an upstream failure that is worth retrying:
// network errors, rate limits, and 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether the given error is a retryable upstream failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate_limit", "rate limit", "429", "too many requests",
		"overloaded", "status 500", "status 502", "status 503",
		"connection refused", "connection reset", "timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryConfig bounds the retry loop around a completion call.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	CallTimeout    time.Duration
}

// DefaultRetryConfig matches the outbound-call budget: a 45s per-call timeout
// and up to three retries with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		CallTimeout:    45 * time.Second,
	}
}

// CompleteWithRetry calls the provider, retrying transient failures with
// exponential backoff. Non-transient errors are returned immediately; schema
// problems in the response body are the caller's concern, not retried here.
func CompleteWithRetry(ctx context.Context, p Provider, req CompletionRequest, cfg RetryConfig) (*CompletionResponse, error) {
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		}
		resp, err := p.Complete(callCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return nil, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}
	return nil, fmt.Errorf("completion failed after %d retries: %w", cfg.MaxRetries, &TransientError{Err: lastErr})
}
