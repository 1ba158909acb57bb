package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearscope-ai/clearscope/internal/db"
	"github.com/clearscope-ai/clearscope/internal/interview"
	"github.com/clearscope-ai/clearscope/internal/llm"
	"github.com/clearscope-ai/clearscope/internal/session"
)

type stubProvider struct {
	response string
}

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: s.response}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func TestHealthCheck(t *testing.T) {
	srv := New(Config{Port: 0}, Deps{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{Port: 0, AllowAll: true}, Deps{})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestSessionRoutesWired(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	provider := &stubProvider{response: `{"facts": [], "deltas": [], "signals": {}}`}
	categories := interview.DefaultCategories()
	tracker := session.NewTracker(categories)
	svc := interview.NewService(
		tracker,
		session.NewStore(database),
		interview.NewAnalyzer(provider, "test-model", categories),
		interview.NewSelector(tracker, interview.DefaultQuestions()),
		nil, nil,
	)
	srv := New(Config{Port: 0}, Deps{DB: database, Interview: svc})

	req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(`{"industry": "hvac"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		SessionID string `json:"session_id"`
		Question  *struct {
			ID string `json:"id"`
		} `json:"question"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.SessionID == "" || body.Question == nil {
		t.Errorf("expected a session with an opening question, got %s", w.Body.String())
	}
}
