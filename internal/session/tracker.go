package session

import "sort"

// maxPointsPerAnswer bounds the total confidence credited to a single
// category from one answer, regardless of how many deltas the analyzer
// produced. Answers touching several categories are credited per category
// under the same bound (conservative bounded-sum rule).
const maxPointsPerAnswer = 40

// Tracker maintains per-session confidence scores over a category catalog.
type Tracker struct {
	catalog []Category
	byID    map[string]Category
}

// NewTracker creates a tracker over the given category catalog.
func NewTracker(catalog []Category) *Tracker {
	byID := make(map[string]Category, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}
	return &Tracker{catalog: catalog, byID: byID}
}

// Catalog returns the category catalog the tracker operates over.
func (t *Tracker) Catalog() []Category { return t.catalog }

// Category looks up a catalog entry by id.
func (t *Tracker) Category(id string) (Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// NewState initializes confidence state for a fresh session.
func (t *Tracker) NewState(sessionID, industry string) *State {
	scores := make(map[string]int, len(t.catalog))
	asked := make(map[string]int, len(t.catalog))
	for _, c := range t.catalog {
		scores[c.ID] = 0
		asked[c.ID] = 0
	}
	return &State{
		ID:       sessionID,
		Industry: industry,
		Scores:   scores,
		Asked:    asked,
		Facts:    make(map[string][]Fact),
	}
}

// Apply credits the given facts and deltas from one answer against the state.
// Each delta is capped by its evidence strength; the total credited to a
// category from one answer is bounded by maxPointsPerAnswer. Scores never
// decrease and never exceed 100. Facts flagged as externally sourced are
// downgraded to LOW confidence before being recorded. Gaps and readiness are
// recomputed before returning.
func (t *Tracker) Apply(state *State, answerID string, facts []Fact, deltas []Delta) {
	credited := make(map[string]int)
	for _, d := range deltas {
		if _, known := t.byID[d.Category]; !known {
			continue
		}
		points := d.Points
		if points <= 0 {
			continue
		}
		if limit := d.Strength.Cap(); points > limit {
			points = limit
		}
		if credited[d.Category]+points > maxPointsPerAnswer {
			points = maxPointsPerAnswer - credited[d.Category]
		}
		if points <= 0 {
			continue
		}
		credited[d.Category] += points

		score := state.Scores[d.Category] + points
		if score > 100 {
			score = 100
		}
		state.Scores[d.Category] = score
	}

	for _, f := range facts {
		f.SessionID = state.ID
		if f.SourceAnswerID == "" {
			f.SourceAnswerID = answerID
		}
		// Unverifiable externally sourced data never carries more than LOW.
		if f.ExternalSource {
			f.Confidence = LevelLow
		}
		state.Facts[f.Category] = append(state.Facts[f.Category], f)
	}

	state.AnswerSeq++
	state.Ready = t.readiness(state)
}

// RecordAsked increments the question counters for a category.
func (t *Tracker) RecordAsked(state *State, category string) {
	state.Asked[category]++
	state.QuestionCount++
	state.Ready = t.readiness(state)
}

// Gaps returns the categories whose score has not reached threshold, ordered
// by priority (descending) then score (ascending).
func (t *Tracker) Gaps(state *State) []string {
	var open []Category
	for _, c := range t.catalog {
		if state.Scores[c.ID] < c.Threshold {
			open = append(open, c)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Priority != open[j].Priority {
			return open[i].Priority > open[j].Priority
		}
		return state.Scores[open[i].ID] < state.Scores[open[j].ID]
	})

	gaps := make([]string, len(open))
	for i, c := range open {
		gaps[i] = c.ID
	}
	return gaps
}

// Readiness reports whether enough evidence exists to stop asking questions:
// every category has cleared its threshold or exhausted its question allotment.
func (t *Tracker) Readiness(state *State) bool {
	return t.readiness(state)
}

func (t *Tracker) readiness(state *State) bool {
	for _, c := range t.catalog {
		if state.Scores[c.ID] >= c.Threshold {
			continue
		}
		if c.Allotment > 0 && state.Asked[c.ID] >= c.Allotment {
			continue
		}
		return false
	}
	return true
}

// Summarize builds the externally visible confidence summary.
func (t *Tracker) Summarize(state *State) Summary {
	scores := make(map[string]int, len(state.Scores))
	for k, v := range state.Scores {
		scores[k] = v
	}
	return Summary{
		Scores: scores,
		Gaps:   t.Gaps(state),
		Ready:  t.readiness(state),
	}
}
