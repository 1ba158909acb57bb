package interview

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearscope-ai/clearscope/internal/session"
)

// EventRecorder receives lifecycle events for the audit trail. The audit
// package's Log satisfies it.
type EventRecorder interface {
	Event(ctx context.Context, event, sessionID, stage, summary string)
}

// Broadcaster pushes confidence updates to any listeners attached to a
// session. The stream Hub satisfies it.
type Broadcaster interface {
	Broadcast(sessionID string, payload any)
}

// Service runs the adaptive question loop: it creates sessions, routes
// answers through the analyzer, applies the resulting evidence to the
// confidence state, and picks the next question.
type Service struct {
	tracker  *session.Tracker
	store    *session.Store
	analyzer *Analyzer
	selector *Selector
	audit    EventRecorder
	hub      Broadcaster

	// locks serializes work per session. Concurrent answers to the same
	// session are applied one at a time; the answer-sequence guard below
	// rejects the ones that raced.
	locks sync.Map

	// followUps holds analyzer-proposed questions per session. They are
	// advisory and not persisted; a restarted server simply regenerates
	// them from subsequent answers.
	followUpsMu sync.Mutex
	followUps   map[string][]Question
}

// NewService wires the interview loop. audit and hub may be nil.
func NewService(tracker *session.Tracker, store *session.Store, analyzer *Analyzer, selector *Selector, audit EventRecorder, hub Broadcaster) *Service {
	return &Service{
		tracker:   tracker,
		store:     store,
		analyzer:  analyzer,
		selector:  selector,
		audit:     audit,
		hub:       hub,
		followUps: make(map[string][]Question),
	}
}

func (s *Service) lock(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// StartSession creates a fresh session for the given industry and returns
// its state together with the first question.
func (s *Service) StartSession(ctx context.Context, industry string) (*session.State, *Question, error) {
	state := s.tracker.NewState("", industry)
	if err := s.store.Create(ctx, state); err != nil {
		return nil, nil, fmt.Errorf("creating session: %w", err)
	}
	s.event(ctx, "session_started", state.ID, "", "industry="+industry)

	question, done, caveat, err := s.advance(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if done {
		// Degenerate catalog: nothing to ask. Record and archive.
		if err := s.finish(ctx, state, caveat); err != nil {
			return nil, nil, err
		}
	}
	return state, question, nil
}

// Resume loads a session and returns the question it is waiting on. Archived
// sessions come back with a nil question.
func (s *Service) Resume(ctx context.Context, sessionID string) (*session.State, *Question, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if state.Archived {
		return state, nil, nil
	}
	question, done, caveat, err := s.advance(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if done {
		if err := s.finish(ctx, state, caveat); err != nil {
			return nil, nil, err
		}
		return state, nil, nil
	}
	return state, question, nil
}

// SubmitAnswer analyzes one answer and folds its evidence into the session.
// expectedSeq is the answer sequence the client observed when the question
// was presented; a mismatch means another answer landed first and this one
// is rejected rather than double-credited.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, questionID, answerText string, expectedSeq int) (*SubmitResult, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Archived {
		return nil, fmt.Errorf("session %s is archived", sessionID)
	}
	if state.AnswerSeq != expectedSeq {
		return nil, &StaleAnswerError{Expected: expectedSeq, Actual: state.AnswerSeq}
	}

	hint := ""
	if q := s.findQuestion(sessionID, questionID); q != nil {
		hint = q.Category
	}

	known, err := s.store.Facts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	analysis, err := s.analyzer.Analyze(ctx, answerText, hint, activeFacts(known))
	if err != nil {
		return nil, fmt.Errorf("analyzing answer: %w", err)
	}
	if analysis.Degraded {
		s.event(ctx, "analysis_degraded", sessionID, "analyze", "answer recorded without confidence credit")
	}

	answerID := fmt.Sprintf("%s#%d", sessionID, state.AnswerSeq+1)
	s.tracker.Apply(state, answerID, analysis.Facts, analysis.Deltas)
	if hint != "" {
		s.tracker.RecordAsked(state, hint)
	}

	for i := range analysis.Facts {
		fact := analysis.Facts[i]
		fact.SessionID = sessionID
		fact.SourceAnswerID = answerID
		if fact.ExternalSource {
			fact.Confidence = session.LevelLow
		}
		if err := s.store.AddFact(ctx, &fact); err != nil {
			return nil, fmt.Errorf("persisting fact: %w", err)
		}
		analysis.Facts[i] = fact
	}
	if err := s.applyCorrections(ctx, sessionID, known, analysis); err != nil {
		return nil, err
	}
	s.stashFollowUps(sessionID, analysis.Signals.FollowUps)

	if questionID != "" {
		if err := s.store.MarkAsked(ctx, sessionID, questionID); err != nil {
			return nil, err
		}
	}
	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}
	s.broadcast(state)

	question, done, caveat, err := s.advance(ctx, state)
	if err != nil {
		return nil, err
	}
	result := &SubmitResult{Question: question, Done: done, Caveat: caveat, Summary: s.tracker.Summarize(state)}
	if done {
		if err := s.finish(ctx, state, caveat); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Summary returns the current confidence snapshot without mutating anything.
func (s *Service) Summary(ctx context.Context, sessionID string) (*session.State, session.Summary, error) {
	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, session.Summary{}, err
	}
	return state, s.tracker.Summarize(state), nil
}

func (s *Service) advance(ctx context.Context, state *session.State) (*Question, bool, string, error) {
	asked, err := s.store.AskedQuestions(ctx, state.ID)
	if err != nil {
		return nil, false, "", err
	}
	question, done, caveat := s.selector.Next(state, asked, s.pendingFollowUps(state.ID))
	return question, done, caveat, nil
}

func (s *Service) finish(ctx context.Context, state *session.State, caveat string) error {
	state.Caveat = caveat
	state.Archived = true
	if err := s.store.Save(ctx, state); err != nil {
		return err
	}
	if err := s.store.Archive(ctx, state.ID); err != nil {
		return err
	}
	summary := "all categories at threshold"
	if caveat != "" {
		summary = caveat
	}
	s.event(ctx, "session_completed", state.ID, "", summary)
	s.broadcast(state)
	s.followUpsMu.Lock()
	delete(s.followUps, state.ID)
	s.followUpsMu.Unlock()
	return nil
}

// applyCorrections marks facts the analyzer flagged as contradicted. The old
// fact stays in the store with a pointer to its replacement.
func (s *Service) applyCorrections(ctx context.Context, sessionID string, known []session.Fact, analysis *Analysis) error {
	for _, c := range analysis.Signals.Corrections {
		replacement := findFactByKey(analysis.Facts, c.FactKey)
		if replacement == nil {
			continue
		}
		for _, old := range known {
			if old.Key != c.FactKey || old.SupersededBy != "" || old.ID == replacement.ID {
				continue
			}
			if err := s.store.Supersede(ctx, old.ID, replacement.ID); err != nil {
				return fmt.Errorf("superseding fact %s: %w", old.ID, err)
			}
			s.event(ctx, "fact_superseded", sessionID, "analyze",
				fmt.Sprintf("%s: %q -> %q", c.FactKey, old.Statement, replacement.Statement))
		}
	}
	return nil
}

func (s *Service) stashFollowUps(sessionID string, proposed []FollowUp) {
	if len(proposed) == 0 {
		return
	}
	s.followUpsMu.Lock()
	defer s.followUpsMu.Unlock()
	for _, f := range proposed {
		id := fmt.Sprintf("fu-%s-%d", f.Category, len(s.followUps[sessionID]))
		s.followUps[sessionID] = append(s.followUps[sessionID], Question{
			ID:       id,
			Category: f.Category,
			Priority: 100, // follow-ups outrank catalog questions in their category
			Text:     f.Text,
		})
	}
}

func (s *Service) pendingFollowUps(sessionID string) []Question {
	s.followUpsMu.Lock()
	defer s.followUpsMu.Unlock()
	return append([]Question{}, s.followUps[sessionID]...)
}

func (s *Service) findQuestion(sessionID, questionID string) *Question {
	if questionID == "" {
		return nil
	}
	for i := range s.selector.static {
		if s.selector.static[i].ID == questionID {
			return &s.selector.static[i]
		}
	}
	for _, q := range s.pendingFollowUps(sessionID) {
		if q.ID == questionID {
			question := q
			return &question
		}
	}
	return nil
}

func (s *Service) event(ctx context.Context, event, sessionID, stage, summary string) {
	if s.audit == nil {
		return
	}
	s.audit.Event(ctx, event, sessionID, stage, summary)
}

func (s *Service) broadcast(state *session.State) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(state.ID, s.tracker.Summarize(state))
}

// StaleAnswerError reports an answer submitted against an outdated view of
// the session.
type StaleAnswerError struct {
	Expected int
	Actual   int
}

func (e *StaleAnswerError) Error() string {
	return fmt.Sprintf("stale answer: expected sequence %d, session is at %d", e.Expected, e.Actual)
}

func activeFacts(facts []session.Fact) []session.Fact {
	out := make([]session.Fact, 0, len(facts))
	for _, f := range facts {
		if f.SupersededBy == "" {
			out = append(out, f)
		}
	}
	return out
}

func findFactByKey(facts []session.Fact, key string) *session.Fact {
	for i := range facts {
		if facts[i].Key == key {
			return &facts[i]
		}
	}
	return nil
}
