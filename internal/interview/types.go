package interview

import "github.com/clearscope-ai/clearscope/internal/session"

// RenderSpec tells the (external) UI how to present a question.
type RenderSpec struct {
	Input       string   `json:"input" yaml:"input"` // "text", "number", "choice"
	Choices     []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Question is one item the selector can put to the subject. The static
// catalog is data; follow-ups generated during a session extend it.
type Question struct {
	ID       string     `json:"id" yaml:"id"`
	Category string     `json:"category" yaml:"category"`
	Priority int        `json:"priority" yaml:"priority"`
	Text     string     `json:"text" yaml:"text"`
	Render   RenderSpec `json:"render" yaml:"render"`
	// Prerequisites lists the fact keys this question assumes are unknown.
	// Once those facts exist with sufficient confidence the question is
	// redundant and is skipped.
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
}

// Correction is a signal that the subject revised an earlier statement.
type Correction struct {
	FactKey      string `json:"fact_key"`
	NewStatement string `json:"new_statement"`
}

// FollowUp is a dynamically generated question suggestion.
type FollowUp struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Signals carries secondary analyzer output beyond facts and deltas.
type Signals struct {
	Corrections []Correction `json:"corrections,omitempty"`
	FollowUps   []FollowUp   `json:"follow_ups,omitempty"`
}

// Analysis is the structured result of interpreting one free-text answer.
type Analysis struct {
	Facts   []session.Fact  `json:"facts"`
	Deltas  []session.Delta `json:"deltas"`
	Signals Signals         `json:"signals"`
	// Degraded is set when the model output could not be parsed and the
	// answer was recorded as a zero-confidence raw fact instead.
	Degraded bool `json:"degraded,omitempty"`
}

// SubmitResult is the outcome of submitting one answer.
type SubmitResult struct {
	Question *Question       `json:"question,omitempty"`
	Done     bool            `json:"done"`
	Caveat   string          `json:"caveat,omitempty"`
	Summary  session.Summary `json:"summary"`
}
