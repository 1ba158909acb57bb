package review

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the review endpoint on the given router.
func RegisterRoutes(r chi.Router, pipeline *Pipeline) {
	r.Post("/api/review", reviewHandler(pipeline))
}

type reviewRequest struct {
	Draft          Draft  `json:"draft"`
	SourceMaterial string `json:"source_material"`
	Industry       string `json:"industry,omitempty"`
}

func reviewHandler(pipeline *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Draft.Content == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "draft.content is required"})
			return
		}
		if req.Industry != "" && req.Draft.Industry == "" {
			req.Draft.Industry = req.Industry
		}

		outcome := pipeline.ReviewAndRefine(r.Context(), req.Draft, req.SourceMaterial)
		writeJSON(w, http.StatusOK, outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
