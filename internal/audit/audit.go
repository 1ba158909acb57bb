// Package audit keeps an append-only trail of the decisions the system
// makes on a subject's behalf: session lifecycle, fact supersession,
// analyzer degradation, review skips. The trail is for offline triage;
// nothing in the serving path reads it.
package audit

import "time"

// Well-known event names. Free-form events are allowed; these are the ones
// the system itself emits.
const (
	EventSessionStarted   = "session_started"
	EventSessionCompleted = "session_completed"
	EventFactSuperseded   = "fact_superseded"
	EventAnalysisDegraded = "analysis_degraded"
	EventReviewSkipped    = "review_skipped"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	SessionID string    `json:"session_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Filter narrows a List call.
type Filter struct {
	SessionID string
	Event     string
	Limit     int
}
