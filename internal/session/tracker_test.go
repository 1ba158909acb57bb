package session

import (
	"math/rand"
	"testing"
)

func testCatalog() []Category {
	return []Category{
		{ID: "team", Name: "Team", Priority: 80, Threshold: 60, Allotment: 4},
		{ID: "ops", Name: "Operations", Priority: 90, Threshold: 70, Allotment: 5},
		{ID: "tech", Name: "Technology", Priority: 60, Threshold: 50, Allotment: 3},
		{ID: "budget", Name: "Budget", Priority: 70, Threshold: 40, Allotment: 3},
	}
}

func TestApplyCapsByStrength(t *testing.T) {
	tr := NewTracker(testCatalog())
	state := tr.NewState("s1", "dental")

	tr.Apply(state, "a1", nil, []Delta{
		{Category: "ops", Points: 100, Strength: StrengthDirect},
	})
	if state.Scores["ops"] != 25 {
		t.Errorf("direct delta should cap at 25, got %d", state.Scores["ops"])
	}

	tr.Apply(state, "a2", nil, []Delta{
		{Category: "team", Points: 100, Strength: StrengthImplied},
	})
	if state.Scores["team"] != 15 {
		t.Errorf("implied delta should cap at 15, got %d", state.Scores["team"])
	}

	tr.Apply(state, "a3", nil, []Delta{
		{Category: "tech", Points: 100, Strength: StrengthInferred},
	})
	if state.Scores["tech"] != 8 {
		t.Errorf("inferred delta should cap at 8, got %d", state.Scores["tech"])
	}
}

func TestApplyBoundedSumPerAnswer(t *testing.T) {
	tr := NewTracker(testCatalog())
	state := tr.NewState("s1", "")

	// Three direct deltas for one category in a single answer: 25+25+25
	// would exceed the per-answer bound of 40.
	tr.Apply(state, "a1", nil, []Delta{
		{Category: "ops", Points: 25, Strength: StrengthDirect},
		{Category: "ops", Points: 25, Strength: StrengthDirect},
		{Category: "ops", Points: 25, Strength: StrengthDirect},
	})
	if state.Scores["ops"] != maxPointsPerAnswer {
		t.Errorf("per-answer credit = %d, want %d", state.Scores["ops"], maxPointsPerAnswer)
	}

	// A second answer touching two categories: each gets its own bound.
	tr.Apply(state, "a2", nil, []Delta{
		{Category: "team", Points: 25, Strength: StrengthDirect},
		{Category: "team", Points: 25, Strength: StrengthDirect},
		{Category: "budget", Points: 20, Strength: StrengthDirect},
	})
	if state.Scores["team"] != 40 {
		t.Errorf("team = %d, want 40", state.Scores["team"])
	}
	if state.Scores["budget"] != 20 {
		t.Errorf("budget = %d, want 20", state.Scores["budget"])
	}
}

func TestScoresMonotonicUnderRandomDeltas(t *testing.T) {
	tr := NewTracker(testCatalog())
	state := tr.NewState("s1", "")
	rng := rand.New(rand.NewSource(42))
	strengths := []Strength{StrengthDirect, StrengthImplied, StrengthInferred}
	categories := []string{"team", "ops", "tech", "budget", "unknown"}

	prev := make(map[string]int)
	for i := 0; i < 500; i++ {
		var deltas []Delta
		for n := rng.Intn(4); n >= 0; n-- {
			deltas = append(deltas, Delta{
				Category: categories[rng.Intn(len(categories))],
				Points:   rng.Intn(80) - 20, // includes negatives
				Strength: strengths[rng.Intn(len(strengths))],
			})
		}
		tr.Apply(state, "a", nil, deltas)

		for cat, score := range state.Scores {
			if score < prev[cat] {
				t.Fatalf("score for %s decreased: %d -> %d", cat, prev[cat], score)
			}
			if score > 100 {
				t.Fatalf("score for %s exceeded 100: %d", cat, score)
			}
			prev[cat] = score
		}
	}
}

func TestReadinessThresholdOrAllotment(t *testing.T) {
	catalog := testCatalog()
	tr := NewTracker(catalog)
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		state := tr.NewState("s", "")
		for _, c := range catalog {
			state.Scores[c.ID] = rng.Intn(101)
			state.Asked[c.ID] = rng.Intn(c.Allotment + 2)
		}

		want := true
		for _, c := range catalog {
			cleared := state.Scores[c.ID] >= c.Threshold
			exhausted := state.Asked[c.ID] >= c.Allotment
			if !cleared && !exhausted {
				want = false
				break
			}
		}

		if got := tr.Readiness(state); got != want {
			t.Fatalf("trial %d: Readiness = %v, want %v (scores=%v asked=%v)",
				trial, got, want, state.Scores, state.Asked)
		}
	}
}

func TestGapsOrderedByPriorityThenScore(t *testing.T) {
	tr := NewTracker(testCatalog())
	state := tr.NewState("s", "")
	state.Scores["ops"] = 10   // priority 90, below threshold 70
	state.Scores["team"] = 30  // priority 80, below threshold 60
	state.Scores["budget"] = 5 // priority 70, below threshold 40
	state.Scores["tech"] = 50  // at threshold, not a gap

	gaps := tr.Gaps(state)
	want := []string{"ops", "team", "budget"}
	if len(gaps) != len(want) {
		t.Fatalf("gaps = %v, want %v", gaps, want)
	}
	for i := range want {
		if gaps[i] != want[i] {
			t.Errorf("gaps[%d] = %q, want %q", i, gaps[i], want[i])
		}
	}
}

func TestExternalSourceFactsForcedLow(t *testing.T) {
	tr := NewTracker(testCatalog())
	state := tr.NewState("s", "")

	tr.Apply(state, "a1", []Fact{
		{Category: "ops", Statement: "industry average is 12%", Confidence: LevelHigh, ExternalSource: true},
		{Category: "ops", Statement: "we have 12 employees", Confidence: LevelHigh},
	}, nil)

	facts := state.Facts["ops"]
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	if facts[0].Confidence != LevelLow {
		t.Errorf("externally sourced fact = %s, want LOW", facts[0].Confidence)
	}
	if facts[1].Confidence != LevelHigh {
		t.Errorf("direct disclosure = %s, want HIGH (labels are never backfilled)", facts[1].Confidence)
	}
}

func TestOpsScenarioClosesGapInOneTurn(t *testing.T) {
	// "12 employees, 10 hrs/week on scheduling" is a direct disclosure with
	// numeric values: it must close a 40-threshold ops gap in one turn.
	catalog := []Category{
		{ID: "ops", Name: "Operations", Priority: 90, Threshold: 40, Allotment: 5},
	}
	tr := NewTracker(catalog)
	state := tr.NewState("s", "")

	hours := 10.0
	employees := 12.0
	tr.Apply(state, "a1", []Fact{
		{Category: "ops", Key: "employee_count", Statement: "12 employees", Value: &employees, Confidence: LevelHigh},
		{Category: "ops", Key: "scheduling_hours_weekly", Statement: "10 hrs/week on scheduling", Value: &hours, Confidence: LevelHigh},
	}, []Delta{
		{Category: "ops", Points: 25, Strength: StrengthDirect},
		{Category: "ops", Points: 25, Strength: StrengthDirect},
	})

	if state.Scores["ops"] < 40 {
		t.Errorf("ops score = %d, want >= 40 after one direct answer", state.Scores["ops"])
	}
	if len(tr.Gaps(state)) != 0 {
		t.Errorf("gaps = %v, want none", tr.Gaps(state))
	}
	if !state.Ready {
		t.Error("state should be ready once the only gap closes")
	}
	if state.Facts["ops"][0].Value == nil || *state.Facts["ops"][0].Value != 12 {
		t.Error("numeric value not preserved on fact")
	}
}
