package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearscope-ai/clearscope/internal/db"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = fmt.Errorf("session not found")

// Store provides persistence for confidence state. State is loaded on start
// and saved on every mutation; sessions are archived, never deleted.
type Store struct {
	db *db.DB
}

// NewStore creates a new session store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create persists a freshly initialized state.
func (s *Store) Create(ctx context.Context, state *State) error {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	state.CreatedAt = now
	state.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, industry, question_count, answer_seq, ready, caveat, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		state.ID, state.Industry, state.QuestionCount, state.AnswerSeq,
		boolToInt(state.Ready), state.Caveat,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return s.saveScores(ctx, state)
}

// Save persists the mutable parts of the state: scores, counters, readiness.
func (s *Store) Save(ctx context.Context, state *State) error {
	now := time.Now().UTC()
	state.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET question_count = ?, answer_seq = ?, ready = ?, caveat = ?, updated_at = ?
		WHERE id = ?`,
		state.QuestionCount, state.AnswerSeq, boolToInt(state.Ready), state.Caveat,
		now.Format(time.DateTime), state.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.saveScores(ctx, state)
}

func (s *Store) saveScores(ctx context.Context, state *State) error {
	for category, score := range state.Scores {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO session_scores (session_id, category, score, asked)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, category) DO UPDATE SET
				score = excluded.score,
				asked = excluded.asked`,
			state.ID, category, score, state.Asked[category],
		)
		if err != nil {
			return fmt.Errorf("saving score for %s: %w", category, err)
		}
	}
	return nil
}

// Get loads a full session state: scores, facts, and counters.
func (s *Store) Get(ctx context.Context, sessionID string) (*State, error) {
	state := &State{
		ID:     sessionID,
		Scores: make(map[string]int),
		Asked:  make(map[string]int),
		Facts:  make(map[string][]Fact),
	}

	var ready, archived int
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT industry, question_count, answer_seq, ready, caveat, archived, created_at, updated_at
		FROM sessions WHERE id = ?`, sessionID,
	).Scan(&state.Industry, &state.QuestionCount, &state.AnswerSeq, &ready,
		&state.Caveat, &archived, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	state.Ready = ready != 0
	state.Archived = archived != 0
	state.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	state.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, score, asked FROM session_scores WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var score, asked int
		if err := rows.Scan(&category, &score, &asked); err != nil {
			return nil, err
		}
		state.Scores[category] = score
		state.Asked[category] = asked
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	facts, err := s.Facts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, f := range facts {
		state.Facts[f.Category] = append(state.Facts[f.Category], f)
	}

	return state, nil
}

// AddFact persists an immutable fact row.
func (s *Store) AddFact(ctx context.Context, fact *Fact) error {
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facts (id, session_id, category, key, statement, value, confidence, source_answer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.SessionID, fact.Category, fact.Key, fact.Statement,
		fact.Value, string(fact.Confidence), fact.SourceAnswerID,
		fact.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting fact: %w", err)
	}
	return nil
}

// Supersede records that a fact has been replaced by a newer one. The
// superseded row is retained for audit.
func (s *Store) Supersede(ctx context.Context, factID, supersededBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE facts SET superseded_by = ? WHERE id = ?`, supersededBy, factID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no fact found with id %s", factID)
	}
	return nil
}

// Facts returns all facts for a session in insertion order, including
// superseded ones.
func (s *Store) Facts(ctx context.Context, sessionID string) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, category, key, statement, value, confidence, source_answer_id, superseded_by, created_at
		FROM facts WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading facts: %w", err)
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		var f Fact
		var value sql.NullFloat64
		var supersededBy sql.NullString
		var createdAt string
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Category, &f.Key, &f.Statement,
			&value, &f.Confidence, &f.SourceAnswerID, &supersededBy, &createdAt); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Float64
			f.Value = &v
		}
		f.SupersededBy = supersededBy.String
		f.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// MarkAsked records that a question was put to the subject in this session.
func (s *Store) MarkAsked(ctx context.Context, sessionID, questionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asked_questions (session_id, question_id) VALUES (?, ?)
		ON CONFLICT(session_id, question_id) DO NOTHING`,
		sessionID, questionID)
	return err
}

// AskedQuestions returns the ids of questions already put to the subject.
func (s *Store) AskedQuestions(ctx context.Context, sessionID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id FROM asked_questions WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	asked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		asked[id] = true
	}
	return asked, rows.Err()
}

// Archive flags a session as ended. The state remains readable.
func (s *Store) Archive(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET archived = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.DateTime), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
