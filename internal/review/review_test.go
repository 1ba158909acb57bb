package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/llm"
)

// stubProvider returns canned completions in sequence, repeating the last
// one once the queue is exhausted.
type stubProvider struct {
	responses []string
	err       error
	panicMsg  string
	calls     int
}

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return &llm.CompletionResponse{Content: s.responses[i]}, nil
}

func (s *stubProvider) Name() string { return "stub" }

type recordedEvent struct {
	event, id, stage, summary string
}

type stubRecorder struct {
	events []recordedEvent
}

func (r *stubRecorder) Event(ctx context.Context, event, id, stage, summary string) {
	r.events = append(r.events, recordedEvent{event, id, stage, summary})
}

type stubGrounder struct {
	results []knowledge.SearchResult
	calls   int
}

func (g *stubGrounder) Search(ctx context.Context, query string, filter knowledge.SearchFilter) ([]knowledge.SearchResult, error) {
	g.calls++
	return g.results, nil
}

func TestExtractSignals(t *testing.T) {
	content := `# Findings

The shop loses $5,000 per month to manual scheduling, roughly 12.5% of revenue.

> We spend every Sunday night building the week's schedule by hand.

Savings estimate: $5,000 annually.`

	signals := ExtractSignals(content)

	if len(signals.Quotes) != 1 || !strings.Contains(signals.Quotes[0], "Sunday night") {
		t.Errorf("unexpected quotes: %#v", signals.Quotes)
	}
	// $5,000 appears twice but is collected once.
	want := []string{"$5,000", "12.5%"}
	if len(signals.Figures) != len(want) {
		t.Fatalf("expected figures %v, got %v", want, signals.Figures)
	}
	for i, f := range want {
		if signals.Figures[i] != f {
			t.Errorf("figure %d: expected %s, got %s", i, f, signals.Figures[i])
		}
	}
}

func TestParseReviewResultRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"prose", "The draft looks mostly fine to me."},
		{"score out of range", `{"quote_accuracy": 11, "overall": 5}`},
		{"correction without after", `{"overall": 5, "corrections": [{"kind": "quote", "before": "x", "after": ""}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseReviewResult(tc.raw)
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Errorf("expected SchemaError, got %v", err)
			}
		})
	}
}

const misquoteReviewJSON = `{
	"quote_accuracy": 3,
	"calculation_accuracy": 9,
	"coverage": 8,
	"source_grounding": 7,
	"overall": 6,
	"corrections": [
		{"kind": "quote", "before": "$500 per month", "after": "$5,000 per month", "reason": "source states $5,000"}
	]
}`

const misquoteRefineJSON = `{
	"content": "The shop loses $5,000 per month to manual scheduling.",
	"claims": [
		{"text": "The shop loses $5,000 per month", "citation": "owner interview", "confidence": "HIGH"}
	],
	"corrections": [
		{"kind": "quote", "before": "$500 per month", "after": "$5,000 per month", "reason": "source states $5,000"}
	]
}`

func TestPipelineCorrectsMisquote(t *testing.T) {
	reviewProvider := &stubProvider{responses: []string{misquoteReviewJSON}}
	refineProvider := &stubProvider{responses: []string{misquoteRefineJSON}}
	pipeline := NewPipeline(
		NewReviewer(reviewProvider, "test-model"),
		NewRefiner(refineProvider, "test-model", nil),
		nil,
	)

	draft := Draft{
		ID:       "d1",
		Industry: "hvac",
		Content:  "The shop loses $500 per month to manual scheduling.",
	}
	outcome := pipeline.ReviewAndRefine(context.Background(), draft, "Owner: we lose $5,000 per month to scheduling.")

	if outcome.Status != StatusRefined {
		t.Fatalf("expected refined status, got %s", outcome.Status)
	}
	if !strings.Contains(outcome.Draft.Content, "$5,000") {
		t.Errorf("expected refined content to carry the corrected figure, got %q", outcome.Draft.Content)
	}
	if outcome.Review == nil || outcome.Review.QuoteAccuracy != 3 {
		t.Errorf("expected review scores to surface, got %+v", outcome.Review)
	}
}

const cleanReviewJSON = `{
	"quote_accuracy": 10,
	"calculation_accuracy": 10,
	"coverage": 9,
	"source_grounding": 9,
	"overall": 9.5
}`

func TestPipelineIdempotentOnRefinedDraft(t *testing.T) {
	content := "The shop loses $5,000 per month to manual scheduling."
	refineProvider := &stubProvider{responses: []string{fmt.Sprintf(`{"content": %q, "claims": [], "corrections": []}`, content)}}
	pipeline := NewPipeline(
		NewReviewer(&stubProvider{responses: []string{cleanReviewJSON}}, "test-model"),
		NewRefiner(refineProvider, "test-model", nil),
		nil,
	)

	draft := Draft{ID: "d1", Content: content}
	outcome := pipeline.ReviewAndRefine(context.Background(), draft, "Owner: we lose $5,000 per month.")

	if outcome.Status != StatusRefined {
		t.Fatalf("expected refined status, got %s", outcome.Status)
	}
	if outcome.Draft.Content != content {
		t.Errorf("re-review of a clean draft must not change it, got %q", outcome.Draft.Content)
	}
	if len(outcome.Review.Corrections) != 0 {
		t.Errorf("expected no further corrections, got %+v", outcome.Review.Corrections)
	}
}

func TestPipelineSkipsOnReviewerFailure(t *testing.T) {
	recorder := &stubRecorder{}
	pipeline := NewPipeline(
		NewReviewer(&stubProvider{err: errors.New("invalid api key")}, "test-model"),
		NewRefiner(&stubProvider{responses: []string{"{}"}}, "test-model", nil),
		recorder,
	)

	draft := Draft{ID: "d1", Content: "Original content."}
	outcome := pipeline.ReviewAndRefine(context.Background(), draft, "source")

	if outcome.Status != StatusSkipped {
		t.Fatalf("expected skipped status, got %s", outcome.Status)
	}
	if outcome.Draft.Content != draft.Content {
		t.Error("skipped outcome must carry the original draft unchanged")
	}
	if outcome.Review != nil {
		t.Error("skipped outcome must not carry partial review scores")
	}
	if len(recorder.events) != 1 || recorder.events[0].event != "review_skipped" || recorder.events[0].stage != string(StatusReviewing) {
		t.Errorf("expected one review_skipped audit event at the reviewing stage, got %+v", recorder.events)
	}
}

func TestPipelineRecoversFromPanic(t *testing.T) {
	pipeline := NewPipeline(
		NewReviewer(&stubProvider{panicMsg: "nil map write"}, "test-model"),
		NewRefiner(&stubProvider{responses: []string{"{}"}}, "test-model", nil),
		nil,
	)

	draft := Draft{ID: "d1", Content: "Original content."}
	outcome := pipeline.ReviewAndRefine(context.Background(), draft, "source")

	if outcome.Status != StatusSkipped {
		t.Fatalf("expected skipped status after panic, got %s", outcome.Status)
	}
	if outcome.Draft.Content != draft.Content {
		t.Error("panic recovery must emit the original draft")
	}
}

func TestRefinerSchemaFailureRepromptsOnce(t *testing.T) {
	provider := &stubProvider{responses: []string{"Sure! Here is the refined draft.", misquoteRefineJSON}}
	refiner := NewRefiner(provider, "test-model", nil)

	refined, err := refiner.Refine(context.Background(), Draft{Content: "x"}, "src", &ReviewResult{Overall: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected strict re-prompt after schema failure, got %d calls", provider.calls)
	}
	if !strings.Contains(refined.Content, "$5,000") {
		t.Errorf("unexpected refined content %q", refined.Content)
	}
}

func TestRefinerBoundsGroundingQueries(t *testing.T) {
	grounder := &stubGrounder{}
	provider := &stubProvider{responses: []string{misquoteRefineJSON}}
	refiner := NewRefiner(provider, "test-model", grounder)

	draft := Draft{Industry: "hvac", Content: "x"}
	for i := 0; i < 12; i++ {
		draft.Claims = append(draft.Claims, Claim{Text: fmt.Sprintf("claim %d", i)})
	}
	if _, err := refiner.Refine(context.Background(), draft, "src", &ReviewResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grounder.calls != maxGroundingQueries {
		t.Errorf("expected %d grounding queries, got %d", maxGroundingQueries, grounder.calls)
	}
}

func TestNormalizeClaims(t *testing.T) {
	claims := normalizeClaims([]Claim{
		{Text: "grounded", Citation: "benchmark:x", Confidence: "HIGH"},
		{Text: "flagged by model", Unverified: true, Confidence: "MEDIUM"},
		{Text: "silent orphan"},
		{Text: "overconfident without source", Confidence: "HIGH"},
	})
	if claims[0].Unverified || claims[0].Confidence != "HIGH" {
		t.Errorf("grounded claim must keep its label: %+v", claims[0])
	}
	if !claims[1].Unverified || claims[1].Confidence != "LOW" {
		t.Errorf("unverified claim must be forced LOW: %+v", claims[1])
	}
	if !claims[2].Unverified || claims[2].Confidence != "LOW" {
		t.Errorf("orphan claim must be marked unverified LOW: %+v", claims[2])
	}
	if !claims[3].Unverified || claims[3].Confidence != "LOW" {
		t.Errorf("claim with a label but no citation must be forced unverified LOW: %+v", claims[3])
	}
}
