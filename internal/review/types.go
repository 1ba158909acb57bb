package review

// Claim is a single assertion in a draft report, optionally tied to a
// source.
type Claim struct {
	Text       string `json:"text"`
	Citation   string `json:"citation,omitempty"`
	Confidence string `json:"confidence,omitempty"` // HIGH, MEDIUM, LOW
	Unverified bool   `json:"unverified,omitempty"`
}

// Figure is a headline number in a draft together with the inputs it was
// computed from, so the reviewer can recompute it.
type Figure struct {
	Label  string    `json:"label"`
	Value  float64   `json:"value"`
	Inputs []float64 `json:"inputs,omitempty"`
}

// Draft is a report draft entering the review pipeline.
type Draft struct {
	ID       string   `json:"id"`
	Industry string   `json:"industry"`
	Content  string   `json:"content"` // markdown
	Claims   []Claim  `json:"claims,omitempty"`
	Figures  []Figure `json:"figures,omitempty"`
}

// Correction records one change the pipeline made to a draft.
type Correction struct {
	Kind   string `json:"kind"` // "quote", "calculation", "citation", "unverified"
	Before string `json:"before"`
	After  string `json:"after"`
	Reason string `json:"reason,omitempty"`
}

// ReviewResult scores a draft on four axes, 0-10 each.
type ReviewResult struct {
	QuoteAccuracy       float64      `json:"quote_accuracy"`
	CalculationAccuracy float64      `json:"calculation_accuracy"`
	Coverage            float64      `json:"coverage"`
	SourceGrounding     float64      `json:"source_grounding"`
	Overall             float64      `json:"overall"`
	Corrections         []Correction `json:"corrections,omitempty"`
	Additions           []string     `json:"additions,omitempty"`
}

// Status names the stage a draft ended the pipeline in.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReviewing Status = "reviewing"
	StatusRefining  Status = "refining"
	StatusRefined   Status = "refined"
	StatusSkipped   Status = "skipped"
)

// Outcome is what the pipeline hands back: the (possibly refined) draft,
// the review scores when the review stage completed, and the final status.
type Outcome struct {
	Draft  Draft         `json:"draft"`
	Review *ReviewResult `json:"review,omitempty"`
	Status Status        `json:"review_status"`
}
