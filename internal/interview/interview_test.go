package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/clearscope-ai/clearscope/internal/db"
	"github.com/clearscope-ai/clearscope/internal/llm"
	"github.com/clearscope-ai/clearscope/internal/session"
)

// stubProvider returns canned completions in sequence, repeating the last
// one once the queue is exhausted.
type stubProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &llm.CompletionResponse{Content: s.responses[i]}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func testCategories() []session.Category {
	return []session.Category{
		{ID: "operations", Name: "Operations", Priority: 90, Threshold: 40, Allotment: 2},
		{ID: "team", Name: "Team", Priority: 80, Threshold: 40, Allotment: 2},
		{ID: "budget", Name: "Budget", Priority: 70, Threshold: 40, Allotment: 2},
	}
}

func testQuestions() []Question {
	return []Question{
		{ID: "q-ops-1", Category: "operations", Priority: 10, Text: "Where does your team lose the most time each week?"},
		{ID: "q-ops-2", Category: "operations", Priority: 5, Text: "Which manual process would you automate first?"},
		{ID: "q-team-1", Category: "team", Priority: 10, Text: "How many people work in the business?",
			Prerequisites: []string{"employee_count"}},
		{ID: "q-team-2", Category: "team", Priority: 5, Text: "How is the team organized?"},
		{ID: "q-budget-1", Category: "budget", Priority: 10, Text: "What do you spend per month on software?"},
	}
}

func newTestService(t *testing.T, provider llm.Provider) (*Service, *session.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tracker := session.NewTracker(testCategories())
	store := session.NewStore(database)
	analyzer := NewAnalyzer(provider, "test-model", testCategories())
	selector := NewSelector(tracker, testQuestions())
	return NewService(tracker, store, analyzer, selector, nil, nil), store
}

const opsAnalysisJSON = `{
	"facts": [
		{"category": "operations", "key": "biggest_time_sink", "statement": "Scheduling eats 10 hours a week", "confidence": "HIGH"}
	],
	"deltas": [
		{"category": "operations", "points": 25, "strength": "direct"},
		{"category": "operations", "points": 20, "strength": "direct"}
	],
	"signals": {}
}`

func TestSelectorOrdersByPriorityThenScore(t *testing.T) {
	tracker := session.NewTracker(testCategories())
	selector := NewSelector(tracker, testQuestions())
	state := tracker.NewState("s1", "hvac")

	q, done, _ := selector.Next(state, map[string]bool{}, nil)
	if done {
		t.Fatal("expected a question, got done")
	}
	if q.ID != "q-ops-1" {
		t.Errorf("expected highest-priority operations question first, got %s", q.ID)
	}

	// Close the operations gap; team is next by category priority.
	state.Scores["operations"] = 50
	q, done, _ = selector.Next(state, map[string]bool{}, nil)
	if done || q.Category != "team" {
		t.Errorf("expected a team question after operations closed, got %+v done=%v", q, done)
	}
}

func TestSelectorNeverReselectsAskedQuestions(t *testing.T) {
	tracker := session.NewTracker(testCategories())
	selector := NewSelector(tracker, testQuestions())
	state := tracker.NewState("s1", "hvac")

	asked := map[string]bool{}
	seen := map[string]bool{}
	for {
		q, done, _ := selector.Next(state, asked, nil)
		if done {
			break
		}
		if seen[q.ID] {
			t.Fatalf("question %s selected twice", q.ID)
		}
		seen[q.ID] = true
		asked[q.ID] = true
		tracker.RecordAsked(state, q.Category)
	}
}

func TestSelectorSkipsSatisfiedPrerequisites(t *testing.T) {
	tracker := session.NewTracker(testCategories())
	selector := NewSelector(tracker, testQuestions())
	state := tracker.NewState("s1", "hvac")
	state.Scores["operations"] = 50
	state.Scores["budget"] = 50

	// employee_count is already known with HIGH confidence, so the headcount
	// question is redundant and the selector falls through to q-team-2.
	state.Facts["team"] = []session.Fact{
		{Key: "employee_count", Statement: "12 employees", Confidence: session.LevelHigh},
	}
	q, done, _ := selector.Next(state, map[string]bool{}, nil)
	if done {
		t.Fatal("expected a question, got done")
	}
	if q.ID != "q-team-2" {
		t.Errorf("expected q-team-2, got %s", q.ID)
	}

	// A superseded or LOW-confidence fact does not satisfy the prerequisite.
	state.Facts["team"][0].Confidence = session.LevelLow
	q, _, _ = selector.Next(state, map[string]bool{}, nil)
	if q == nil || q.ID != "q-team-1" {
		t.Errorf("expected q-team-1 when the known fact is LOW, got %+v", q)
	}
}

func TestSelectorCaveatOnAllotmentExhaustion(t *testing.T) {
	tracker := session.NewTracker(testCategories())
	selector := NewSelector(tracker, testQuestions())
	state := tracker.NewState("s1", "hvac")

	// Exhaust every category's allotment with nothing learned.
	for _, c := range testCategories() {
		for i := 0; i < c.Allotment; i++ {
			tracker.RecordAsked(state, c.ID)
		}
	}
	q, done, caveat := selector.Next(state, map[string]bool{}, nil)
	if !done || q != nil {
		t.Fatalf("expected done after exhaustion, got question %+v", q)
	}
	if caveat == "" {
		t.Error("expected a caveat recording the partial-evidence stop")
	}
}

func TestSelectorPrefersDynamicFollowUps(t *testing.T) {
	tracker := session.NewTracker(testCategories())
	selector := NewSelector(tracker, testQuestions())
	state := tracker.NewState("s1", "hvac")

	followUp := Question{ID: "fu-operations-0", Category: "operations", Priority: 100, Text: "How many jobs slip per week because of scheduling?"}
	q, done, _ := selector.Next(state, map[string]bool{}, []Question{followUp})
	if done || q.ID != "fu-operations-0" {
		t.Errorf("expected follow-up to outrank catalog questions, got %+v", q)
	}
}

func TestAnalyzerParsesWellFormedResponse(t *testing.T) {
	provider := &stubProvider{responses: []string{opsAnalysisJSON}}
	analyzer := NewAnalyzer(provider, "test-model", testCategories())

	analysis, err := analyzer.Analyze(context.Background(), "Scheduling eats 10 hours a week", "operations", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Degraded {
		t.Error("well-formed response should not degrade")
	}
	if len(analysis.Facts) != 1 || analysis.Facts[0].Confidence != session.LevelHigh {
		t.Errorf("unexpected facts: %+v", analysis.Facts)
	}
	if len(analysis.Deltas) != 2 {
		t.Errorf("expected 2 deltas, got %d", len(analysis.Deltas))
	}
}

func TestAnalyzerStrictRepromptRecovers(t *testing.T) {
	provider := &stubProvider{responses: []string{"I think the answer means they are busy.", opsAnalysisJSON}}
	analyzer := NewAnalyzer(provider, "test-model", testCategories())

	analysis, err := analyzer.Analyze(context.Background(), "so busy", "operations", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Degraded {
		t.Error("recovered response should not be marked degraded")
	}
	if provider.calls != 2 {
		t.Errorf("expected exactly 2 completion calls, got %d", provider.calls)
	}
}

func TestAnalyzerDegradesAfterRepeatedSchemaFailure(t *testing.T) {
	provider := &stubProvider{responses: []string{"not json", `{"facts": [{"category": "nope", "statement": "x", "confidence": "HIGH"}]}`}}
	analyzer := NewAnalyzer(provider, "test-model", testCategories())

	analysis, err := analyzer.Analyze(context.Background(), "we have about 12 staff", "team", nil)
	if err != nil {
		t.Fatalf("degradation should not surface an error: %v", err)
	}
	if !analysis.Degraded {
		t.Fatal("expected degraded analysis")
	}
	if len(analysis.Deltas) != 0 {
		t.Error("degraded analysis must not award confidence points")
	}
	f := analysis.Facts[0]
	if f.Key != "raw_answer" || f.Confidence != session.LevelLow || f.Statement != "we have about 12 staff" {
		t.Errorf("unexpected degraded fact: %+v", f)
	}
}

func TestAnalyzerPropagatesNonSchemaErrors(t *testing.T) {
	boom := errors.New("invalid api key")
	provider := &stubProvider{responses: []string{""}, errs: []error{boom}}
	analyzer := NewAnalyzer(provider, "test-model", testCategories())

	if _, err := analyzer.Analyze(context.Background(), "anything", "", nil); err == nil {
		t.Fatal("expected upstream error to propagate")
	}
}

func TestServiceAnswerLoop(t *testing.T) {
	provider := &stubProvider{responses: []string{opsAnalysisJSON}}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	state, question, err := svc.StartSession(ctx, "hvac")
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	if question == nil || question.Category != "operations" {
		t.Fatalf("expected an operations question to open the session, got %+v", question)
	}

	result, err := svc.SubmitAnswer(ctx, state.ID, question.ID, "Scheduling eats 10 hours a week", 0)
	if err != nil {
		t.Fatalf("submitting answer: %v", err)
	}
	if result.Summary.Scores["operations"] != 40 {
		t.Errorf("expected operations at 40 after the capped answer, got %d", result.Summary.Scores["operations"])
	}
	if result.Done {
		t.Error("other categories still open, session should continue")
	}
	if result.Question == nil || result.Question.Category == "operations" {
		t.Errorf("expected the next question from another category, got %+v", result.Question)
	}

	facts, err := store.Facts(ctx, state.ID)
	if err != nil {
		t.Fatalf("loading facts: %v", err)
	}
	if len(facts) != 1 || facts[0].Key != "biggest_time_sink" {
		t.Errorf("expected the extracted fact to be persisted, got %+v", facts)
	}
}

func TestServiceRejectsStaleAnswerSeq(t *testing.T) {
	provider := &stubProvider{responses: []string{opsAnalysisJSON}}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	state, question, err := svc.StartSession(ctx, "hvac")
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, state.ID, question.ID, "first answer", 0); err != nil {
		t.Fatalf("first answer: %v", err)
	}

	// A second client still holding seq 0 must be rejected, not double-credited.
	_, err = svc.SubmitAnswer(ctx, state.ID, question.ID, "racing answer", 0)
	var stale *StaleAnswerError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleAnswerError, got %v", err)
	}
}

func TestServiceAppliesCorrections(t *testing.T) {
	first := `{
		"facts": [{"category": "team", "key": "employee_count", "statement": "About 20 employees", "confidence": "MEDIUM"}],
		"deltas": [{"category": "team", "points": 10, "strength": "implied"}],
		"signals": {}
	}`
	second := `{
		"facts": [{"category": "team", "key": "employee_count", "statement": "Actually 12 employees", "value": 12, "confidence": "HIGH"}],
		"deltas": [{"category": "team", "points": 15, "strength": "direct"}],
		"signals": {"corrections": [{"fact_key": "employee_count", "new_statement": "Actually 12 employees"}]}
	}`
	provider := &stubProvider{responses: []string{first, second}}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	state, _, err := svc.StartSession(ctx, "hvac")
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, state.ID, "q-team-2", "we have about 20 people", 0); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, state.ID, "q-team-2", "sorry, it's actually 12", 1); err != nil {
		t.Fatalf("correcting answer: %v", err)
	}

	facts, err := store.Facts(ctx, state.ID)
	if err != nil {
		t.Fatalf("loading facts: %v", err)
	}
	var superseded, active int
	for _, f := range facts {
		if f.Key != "employee_count" {
			continue
		}
		if f.SupersededBy != "" {
			superseded++
		} else {
			active++
		}
	}
	if superseded != 1 || active != 1 {
		t.Errorf("expected one superseded and one active employee_count fact, got superseded=%d active=%d", superseded, active)
	}
}

func TestServiceResumeDoesNotReaskCreditedCategories(t *testing.T) {
	provider := &stubProvider{responses: []string{opsAnalysisJSON}}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	state, question, err := svc.StartSession(ctx, "hvac")
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, state.ID, question.ID, "Scheduling eats 10 hours a week", 0); err != nil {
		t.Fatalf("submitting answer: %v", err)
	}

	// A fresh service over the same store simulates a restart.
	resumed, next, err := svc.Resume(ctx, state.ID)
	if err != nil {
		t.Fatalf("resuming: %v", err)
	}
	if resumed.AnswerSeq != 1 {
		t.Errorf("expected persisted answer_seq 1, got %d", resumed.AnswerSeq)
	}
	if next == nil || next.Category == "operations" {
		t.Errorf("resume must not re-ask the credited operations category, got %+v", next)
	}
}

func TestServiceResumeUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, &stubProvider{responses: []string{"{}"}})
	if _, _, err := svc.Resume(context.Background(), "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
