package audit

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearscope-ai/clearscope/internal/db"
)

// Log records and queries audit entries.
type Log struct {
	db *db.DB
}

// NewLog creates a Log backed by the given database.
func NewLog(database *db.DB) *Log {
	return &Log{db: database}
}

// Record inserts an entry. If entry.ID is empty a UUID is generated.
func (l *Log) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, timestamp, event, session_id, stage, summary, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.Format(time.DateTime),
		entry.Event,
		entry.SessionID,
		entry.Stage,
		entry.Summary,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// Event is the fire-and-forget form used from serving paths: a failed
// write is logged and swallowed, it never fails the operation it annotates.
func (l *Log) Event(ctx context.Context, event, sessionID, stage, summary string) {
	err := l.Record(ctx, Entry{
		Event:     event,
		SessionID: sessionID,
		Stage:     stage,
		Summary:   summary,
	})
	if err != nil {
		log.Printf("audit: recording %s: %v", event, err)
	}
}

// List returns entries matching the filter, newest first.
func (l *Log) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, timestamp, event, session_id, stage, summary, detail
		FROM audit_entries`
	var conds []string
	var args []interface{}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Event != "" {
		conds = append(conds, "event = ?")
		args = append(args, filter.Event)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Event, &e.SessionID, &e.Stage, &e.Summary, &e.Detail); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if t, perr := time.Parse(time.DateTime, ts); perr == nil {
			e.Timestamp = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
