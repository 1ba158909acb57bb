package interview

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearscope-ai/clearscope/internal/session"
)

// RegisterRoutes mounts the session API endpoints on the given router.
func RegisterRoutes(r chi.Router, svc *Service, hub *Hub) {
	r.Post("/api/sessions", createSessionHandler(svc))
	r.Get("/api/sessions/{id}", resumeHandler(svc))
	r.Post("/api/sessions/{id}/answers", answerHandler(svc))
	r.Get("/api/sessions/{id}/confidence", confidenceHandler(svc))
	if hub != nil {
		r.Get("/api/sessions/{id}/stream", func(w http.ResponseWriter, req *http.Request) {
			hub.ServeStream(w, req, chi.URLParam(req, "id"))
		})
	}
}

type createSessionRequest struct {
	Industry string `json:"industry"`
}

type sessionResponse struct {
	SessionID string          `json:"session_id"`
	AnswerSeq int             `json:"answer_seq"`
	Question  *Question       `json:"question,omitempty"`
	Done      bool            `json:"done"`
	Caveat    string          `json:"caveat,omitempty"`
	Summary   session.Summary `json:"summary"`
}

func createSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Industry == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "industry is required"})
			return
		}

		state, question, err := svc.StartSession(r.Context(), req.Industry)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse{
			SessionID: state.ID,
			AnswerSeq: state.AnswerSeq,
			Question:  question,
			Done:      question == nil,
			Caveat:    state.Caveat,
			Summary:   svc.tracker.Summarize(state),
		})
	}
}

func resumeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, question, err := svc.Resume(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			SessionID: state.ID,
			AnswerSeq: state.AnswerSeq,
			Question:  question,
			Done:      question == nil,
			Caveat:    state.Caveat,
			Summary:   svc.tracker.Summarize(state),
		})
	}
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	AnswerSeq  int    `json:"answer_seq"`
}

func answerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Answer == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "answer is required"})
			return
		}

		sessionID := chi.URLParam(r, "id")
		result, err := svc.SubmitAnswer(r.Context(), sessionID, req.QuestionID, req.Answer, req.AnswerSeq)
		if err != nil {
			var stale *StaleAnswerError
			if errors.As(err, &stale) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": stale.Error()})
				return
			}
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			SessionID: sessionID,
			AnswerSeq: req.AnswerSeq + 1,
			Question:  result.Question,
			Done:      result.Done,
			Caveat:    result.Caveat,
			Summary:   result.Summary,
		})
	}
}

func confidenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, summary, err := svc.Summary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": state.ID,
			"answer_seq": state.AnswerSeq,
			"archived":   state.Archived,
			"caveat":     state.Caveat,
			"summary":    summary,
		})
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
