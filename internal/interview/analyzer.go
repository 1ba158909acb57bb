package interview

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/clearscope-ai/clearscope/internal/llm"
	"github.com/clearscope-ai/clearscope/internal/session"
)

// SchemaError marks model output that failed schema validation. Schema
// failures are re-prompted, never retried at the network level.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + e.Reason
}

// Analyzer converts one free-text answer into extracted facts and confidence
// deltas via the completion service.
type Analyzer struct {
	provider   llm.Provider
	model      string
	retry      llm.RetryConfig
	categories []session.Category
}

// NewAnalyzer creates an analyzer over the given category catalog.
func NewAnalyzer(provider llm.Provider, model string, categories []session.Category) *Analyzer {
	return &Analyzer{
		provider:   provider,
		model:      model,
		retry:      llm.DefaultRetryConfig(),
		categories: categories,
	}
}

// Analyze interprets a single answer. Identical input produces identical
// output (temperature zero, deterministic prompt). On schema failure the
// model is re-prompted once with a stricter instruction; if that also fails
// the answer is recorded as a zero-confidence raw fact so progress never
// blocks and nothing is silently dropped. Transient upstream failures are
// retried with backoff and, once exhausted, returned to the caller with no
// state consumed.
func (a *Analyzer) Analyze(ctx context.Context, answerText, categoryHint string, known []session.Fact) (*Analysis, error) {
	prompt := buildAnalyzePrompt(answerText, categoryHint, a.categories, known)

	analysis, err := a.completeAndParse(ctx, analyzeSystemPrompt, prompt)
	if err == nil {
		return analysis, nil
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		return nil, err
	}

	// One stricter re-prompt.
	analysis, err = a.completeAndParse(ctx, strictSystemPrompt, prompt)
	if err == nil {
		return analysis, nil
	}
	if !errors.As(err, &schemaErr) {
		return nil, err
	}

	// Degrade: keep the raw answer as a LOW-confidence fact with no deltas.
	category := categoryHint
	if category == "" && len(a.categories) > 0 {
		category = a.categories[0].ID
	}
	return &Analysis{
		Facts: []session.Fact{{
			Category:   category,
			Key:        "raw_answer",
			Statement:  answerText,
			Confidence: session.LevelLow,
		}},
		Degraded: true,
	}, nil
}

func (a *Analyzer) completeAndParse(ctx context.Context, system, prompt string) (*Analysis, error) {
	resp, err := llm.CompleteWithRetry(ctx, a.provider, llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   2048,
		Temperature: 0.0,
		JSONMode:    true,
	}, a.retry)
	if err != nil {
		return nil, err
	}
	return a.parse(resp.Content)
}

// analysisPayload is the wire schema of the model response.
type analysisPayload struct {
	Facts []struct {
		Category       string   `json:"category"`
		Key            string   `json:"key"`
		Statement      string   `json:"statement"`
		Value          *float64 `json:"value"`
		Confidence     string   `json:"confidence"`
		ExternalSource bool     `json:"external_source"`
	} `json:"facts"`
	Deltas []struct {
		Category string `json:"category"`
		Points   int    `json:"points"`
		Strength string `json:"strength"`
	} `json:"deltas"`
	Signals Signals `json:"signals"`
}

func (a *Analyzer) parse(raw string) (*Analysis, error) {
	raw = stripFences(raw)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &SchemaError{Reason: "json parse: " + err.Error()}
	}

	valid := make(map[string]bool, len(a.categories))
	for _, c := range a.categories {
		valid[c.ID] = true
	}

	analysis := &Analysis{Signals: payload.Signals}
	for _, f := range payload.Facts {
		if f.Statement == "" {
			return nil, &SchemaError{Reason: "fact without statement"}
		}
		if !valid[f.Category] {
			return nil, &SchemaError{Reason: "unknown category " + f.Category}
		}
		level := session.Level(strings.ToUpper(f.Confidence))
		switch level {
		case session.LevelHigh, session.LevelMedium, session.LevelLow:
		default:
			return nil, &SchemaError{Reason: "invalid confidence label " + f.Confidence}
		}
		analysis.Facts = append(analysis.Facts, session.Fact{
			Category:       f.Category,
			Key:            f.Key,
			Statement:      f.Statement,
			Value:          f.Value,
			Confidence:     level,
			ExternalSource: f.ExternalSource,
		})
	}
	for _, d := range payload.Deltas {
		if !valid[d.Category] {
			return nil, &SchemaError{Reason: "unknown delta category " + d.Category}
		}
		strength := session.Strength(strings.ToLower(d.Strength))
		switch strength {
		case session.StrengthDirect, session.StrengthImplied, session.StrengthInferred:
		default:
			return nil, &SchemaError{Reason: "invalid strength " + d.Strength}
		}
		if d.Points <= 0 {
			continue
		}
		analysis.Deltas = append(analysis.Deltas, session.Delta{
			Category: d.Category,
			Points:   d.Points,
			Strength: strength,
		})
	}

	return analysis, nil
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
