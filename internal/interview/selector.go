package interview

import (
	"sort"

	"github.com/clearscope-ai/clearscope/internal/session"
)

// Selector decides what to ask next. It is stateless: every decision is a
// function of the persisted confidence state and the asked-question set, so
// a paused session resumes exactly where it left off without re-asking
// already-credited categories.
type Selector struct {
	tracker *session.Tracker
	static  []Question
}

// NewSelector creates a selector over the static question catalog.
func NewSelector(tracker *session.Tracker, questions []Question) *Selector {
	return &Selector{tracker: tracker, static: questions}
}

// exhaustedCaveat is recorded when the loop stops on allotment rather than
// evidence.
const exhaustedCaveat = "question allotment exhausted before all categories reached their confidence threshold; report generated from partial evidence"

// Next returns the next question to ask, or done=true when the loop should
// stop. Gap categories are visited by (priority desc, score asc); questions
// whose prerequisite facts are already satisfied with sufficient confidence
// are skipped; dynamic follow-ups compete with the static catalog inside
// their category.
func (s *Selector) Next(state *session.State, asked map[string]bool, dynamic []Question) (*Question, bool, string) {
	if s.tracker.Readiness(state) {
		caveat := ""
		if len(s.tracker.Gaps(state)) > 0 {
			caveat = exhaustedCaveat
		}
		return nil, true, caveat
	}

	pool := make(map[string][]Question)
	for _, q := range append(append([]Question{}, s.static...), dynamic...) {
		pool[q.Category] = append(pool[q.Category], q)
	}
	for _, qs := range pool {
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].Priority > qs[j].Priority })
	}

	for _, category := range s.tracker.Gaps(state) {
		cat, ok := s.tracker.Category(category)
		if !ok {
			continue
		}
		if cat.Allotment > 0 && state.Asked[category] >= cat.Allotment {
			continue
		}
		for _, q := range pool[category] {
			if asked[q.ID] {
				continue
			}
			if s.prerequisitesSatisfied(q, state) {
				continue
			}
			question := q
			return &question, false, ""
		}
	}

	// Gaps remain but no askable question is left: accept partial state.
	return nil, true, exhaustedCaveat
}

// prerequisitesSatisfied reports whether every fact key the question targets
// already exists with at least MEDIUM confidence. Such a question would be
// redundant.
func (s *Selector) prerequisitesSatisfied(q Question, state *session.State) bool {
	if len(q.Prerequisites) == 0 {
		return false
	}
	for _, key := range q.Prerequisites {
		if !hasConfidentFact(state, q.Category, key) {
			return false
		}
	}
	return true
}

func hasConfidentFact(state *session.State, category, key string) bool {
	for _, f := range state.Facts[category] {
		if f.Key != key || f.SupersededBy != "" {
			continue
		}
		if f.Confidence == session.LevelHigh || f.Confidence == session.LevelMedium {
			return true
		}
	}
	return false
}
