package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/clearscope-ai/clearscope/internal/llm"
)

// RetryingEmbedder wraps an Embedder with the same transient-failure budget
// completions get: bounded exponential backoff, non-transient errors
// returned immediately.
type RetryingEmbedder struct {
	embedder Embedder
	cfg      llm.RetryConfig
}

// NewRetryingEmbedder wraps the given embedder with retry behavior.
func NewRetryingEmbedder(embedder Embedder, cfg llm.RetryConfig) *RetryingEmbedder {
	return &RetryingEmbedder{embedder: embedder, cfg: cfg}
}

func (r *RetryingEmbedder) Name() string {
	return r.embedder.Name()
}

func (r *RetryingEmbedder) Dimensions() int {
	return r.embedder.Dimensions()
}

func (r *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := r.cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if r.cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		}
		vecs, err := r.embedder.Embed(callCtx, texts)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if !llm.IsTransient(err) {
			return nil, err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
				backoff = r.cfg.MaxBackoff
			}
		}
	}
	return nil, fmt.Errorf("embedding failed after %d retries: %w", r.cfg.MaxRetries, &llm.TransientError{Err: lastErr})
}
