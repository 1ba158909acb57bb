package review

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/clearscope-ai/clearscope/internal/llm"
)

// SchemaError reports a model response that could not be parsed into the
// expected shape. Schema failures are re-prompted, never retried at the
// network level.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + e.Reason
}

// Reviewer scores a draft against its source material.
type Reviewer struct {
	provider llm.Provider
	model    string
	retry    llm.RetryConfig
}

func NewReviewer(provider llm.Provider, model string) *Reviewer {
	return &Reviewer{provider: provider, model: model, retry: llm.DefaultRetryConfig()}
}

// Review runs the fact-checking pass. Identical input yields identical
// output (temperature zero). On schema failure the model is re-prompted once
// with a stricter instruction before the error is surfaced.
func (r *Reviewer) Review(ctx context.Context, draft Draft, sourceMaterial string) (*ReviewResult, error) {
	signals := ExtractSignals(draft.Content)
	prompt := buildReviewPrompt(draft, sourceMaterial, signals)

	result, err := r.completeAndParse(ctx, reviewSystemPrompt, prompt)
	if err == nil {
		return result, nil
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		return nil, err
	}
	return r.completeAndParse(ctx, reviewStrictSystemPrompt, prompt)
}

func (r *Reviewer) completeAndParse(ctx context.Context, system, prompt string) (*ReviewResult, error) {
	resp, err := llm.CompleteWithRetry(ctx, r.provider, llm.CompletionRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.0,
		JSONMode:    true,
	}, r.retry)
	if err != nil {
		return nil, err
	}
	return parseReviewResult(resp.Content)
}

func parseReviewResult(raw string) (*ReviewResult, error) {
	raw = stripFences(raw)

	var result ReviewResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &SchemaError{Reason: "json parse: " + err.Error()}
	}
	for _, score := range []float64{
		result.QuoteAccuracy, result.CalculationAccuracy,
		result.Coverage, result.SourceGrounding, result.Overall,
	} {
		if score < 0 || score > 10 {
			return nil, &SchemaError{Reason: "score out of range"}
		}
	}
	for _, c := range result.Corrections {
		if c.After == "" {
			return nil, &SchemaError{Reason: "correction without replacement text"}
		}
	}
	return &result, nil
}

func marshalIndent(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// stripFences removes markdown code fences around a JSON response.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
