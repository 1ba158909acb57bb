package audit

import (
	"context"
	"testing"
	"time"

	"github.com/clearscope-ai/clearscope/internal/db"
)

func setupTestLog(t *testing.T) *Log {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewLog(database)
}

func TestRecordAndList(t *testing.T) {
	auditLog := setupTestLog(t)
	ctx := context.Background()

	entries := []Entry{
		{Event: EventSessionStarted, SessionID: "s1", Summary: "industry=hvac", Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Event: EventFactSuperseded, SessionID: "s1", Stage: "analyze", Summary: "employee_count corrected", Timestamp: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)},
		{Event: EventReviewSkipped, SessionID: "s2", Stage: "reviewing", Summary: "schema failure", Timestamp: time.Date(2026, 3, 1, 10, 10, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		if err := auditLog.Record(ctx, e); err != nil {
			t.Fatalf("recording %s: %v", e.Event, err)
		}
	}

	all, err := auditLog.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Event != EventReviewSkipped {
		t.Errorf("expected newest first, got %s", all[0].Event)
	}

	s1, err := auditLog.List(ctx, Filter{SessionID: "s1"})
	if err != nil {
		t.Fatalf("listing by session: %v", err)
	}
	if len(s1) != 2 {
		t.Errorf("expected 2 entries for s1, got %d", len(s1))
	}

	skips, err := auditLog.List(ctx, Filter{Event: EventReviewSkipped})
	if err != nil {
		t.Fatalf("listing by event: %v", err)
	}
	if len(skips) != 1 || skips[0].SessionID != "s2" {
		t.Errorf("unexpected event filter result: %+v", skips)
	}
}

func TestListLimit(t *testing.T) {
	auditLog := setupTestLog(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := auditLog.Record(ctx, Entry{Event: EventSessionStarted, SessionID: "s1"}); err != nil {
			t.Fatalf("recording: %v", err)
		}
	}
	got, err := auditLog.List(ctx, Filter{Limit: 4})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected limit 4, got %d", len(got))
	}
}

func TestEventSwallowsFailures(t *testing.T) {
	auditLog := setupTestLog(t)
	// Event must not panic or propagate even with empty fields.
	auditLog.Event(context.Background(), EventAnalysisDegraded, "", "", "")

	got, err := auditLog.List(context.Background(), Filter{Event: EventAnalysisDegraded})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected the event to be recorded, got %d entries", len(got))
	}
}
