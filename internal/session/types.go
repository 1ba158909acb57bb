package session

import "time"

// Level classifies how well-evidenced a fact is.
type Level string

const (
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
)

// Strength ranks the kind of evidence an answer provides. A direct disclosure
// is worth more than something the subject merely implied, which in turn is
// worth more than a pattern inferred across answers.
type Strength string

const (
	StrengthDirect   Strength = "direct"
	StrengthImplied  Strength = "implied"
	StrengthInferred Strength = "inferred"
)

// Cap returns the maximum confidence points a single delta of this
// strength may contribute.
func (s Strength) Cap() int {
	switch s {
	case StrengthDirect:
		return 25
	case StrengthImplied:
		return 15
	case StrengthInferred:
		return 8
	default:
		return 8
	}
}

// Category is a topic bucket the interview must gather evidence about.
type Category struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Priority  int    `json:"priority" yaml:"priority"`
	Threshold int    `json:"threshold" yaml:"threshold"`
	// Allotment bounds how many questions may be spent on this category
	// before the tracker accepts partial evidence.
	Allotment int `json:"allotment" yaml:"allotment"`
}

// Fact is a single piece of extracted evidence. Facts are immutable;
// corrections create a new fact and record the supersession.
type Fact struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Category       string     `json:"category"`
	Key            string     `json:"key"`
	Statement      string     `json:"statement"`
	Value          *float64   `json:"value,omitempty"`
	Confidence     Level      `json:"confidence"`
	ExternalSource bool       `json:"external_source,omitempty"`
	SourceAnswerID string     `json:"source_answer_id"`
	SupersededBy   string     `json:"superseded_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Delta is a confidence score adjustment for one category.
type Delta struct {
	Category string   `json:"category"`
	Points   int      `json:"points"`
	Strength Strength `json:"strength"`
}

// State is the per-session confidence state. It is created at session start,
// mutated once per answer, and archived rather than deleted at session end.
type State struct {
	ID            string            `json:"id"`
	Industry      string            `json:"industry"`
	Scores        map[string]int    `json:"scores"`
	Asked         map[string]int    `json:"asked"`
	Facts         map[string][]Fact `json:"facts"`
	QuestionCount int               `json:"question_count"`
	AnswerSeq     int               `json:"answer_seq"`
	Ready         bool              `json:"ready"`
	Caveat        string            `json:"caveat,omitempty"`
	Archived      bool              `json:"archived"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Summary is the externally visible view of a session's confidence state.
type Summary struct {
	Scores map[string]int `json:"scores"`
	Gaps   []string       `json:"gaps"`
	Ready  bool           `json:"ready"`
}
