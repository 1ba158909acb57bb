package review

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/llm"
)

// Grounder retrieves reference knowledge for the refine stage. The
// knowledge Index satisfies it.
type Grounder interface {
	Search(ctx context.Context, query string, filter knowledge.SearchFilter) ([]knowledge.SearchResult, error)
}

// maxGroundingQueries bounds retrieval per draft so a claim-heavy draft
// cannot fan out into unbounded embedding calls.
const maxGroundingQueries = 5

// refinePayload is the wire schema of the refine response.
type refinePayload struct {
	Content     string       `json:"content"`
	Claims      []Claim      `json:"claims"`
	Corrections []Correction `json:"corrections"`
}

// Refiner applies reviewer findings to a draft, grounding claims in the
// knowledge index.
type Refiner struct {
	provider llm.Provider
	model    string
	retry    llm.RetryConfig
	grounder Grounder
}

// NewRefiner creates a refiner. grounder may be nil, in which case claims
// are refined against the source material alone.
func NewRefiner(provider llm.Provider, model string, grounder Grounder) *Refiner {
	return &Refiner{provider: provider, model: model, retry: llm.DefaultRetryConfig(), grounder: grounder}
}

// Refine rewrites the draft according to the review result. Claims that
// cannot be grounded anywhere are kept, marked unverified with LOW
// confidence.
func (r *Refiner) Refine(ctx context.Context, draft Draft, sourceMaterial string, result *ReviewResult) (Draft, error) {
	grounding, err := r.ground(ctx, draft)
	if err != nil {
		return Draft{}, err
	}
	prompt := buildRefinePrompt(draft, sourceMaterial, result, grounding)

	payload, err := r.completeAndParse(ctx, refineSystemPrompt, prompt)
	if err != nil {
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			return Draft{}, err
		}
		payload, err = r.completeAndParse(ctx, refineStrictSystemPrompt, prompt)
		if err != nil {
			return Draft{}, err
		}
	}

	refined := draft
	refined.Content = payload.Content
	refined.Claims = normalizeClaims(payload.Claims)
	return refined, nil
}

// ground collects reference knowledge for the draft's claims, filtered to
// its industry.
func (r *Refiner) ground(ctx context.Context, draft Draft) ([]knowledge.SearchResult, error) {
	if r.grounder == nil {
		return nil, nil
	}

	queries := make([]string, 0, maxGroundingQueries)
	for _, c := range draft.Claims {
		if len(queries) == maxGroundingQueries {
			break
		}
		queries = append(queries, c.Text)
	}
	if len(queries) == 0 {
		queries = append(queries, draft.Content)
	}

	filter := knowledge.SearchFilter{Industry: draft.Industry, TopK: 3}
	seen := make(map[string]bool)
	var grounding []knowledge.SearchResult
	for _, q := range queries {
		results, err := r.grounder.Search(ctx, q, filter)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			key := res.Item.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			grounding = append(grounding, res)
		}
	}
	return grounding, nil
}

func (r *Refiner) completeAndParse(ctx context.Context, system, prompt string) (*refinePayload, error) {
	resp, err := llm.CompleteWithRetry(ctx, r.provider, llm.CompletionRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   8192,
		Temperature: 0.0,
		JSONMode:    true,
	}, r.retry)
	if err != nil {
		return nil, err
	}
	return parseRefinePayload(resp.Content)
}

func parseRefinePayload(raw string) (*refinePayload, error) {
	raw = stripFences(raw)

	var payload refinePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &SchemaError{Reason: "json parse: " + err.Error()}
	}
	if payload.Content == "" {
		return nil, &SchemaError{Reason: "refined content is empty"}
	}
	return &payload, nil
}

// normalizeClaims enforces the unverified rule: any claim without a
// citation is unverified at LOW confidence, whatever the model says about
// itself. Grounding is proven by a citation, never self-reported.
func normalizeClaims(claims []Claim) []Claim {
	for i, c := range claims {
		if c.Unverified || c.Citation == "" {
			claims[i].Unverified = true
			claims[i].Confidence = "LOW"
		}
	}
	return claims
}
