package knowledge

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the knowledge API endpoints on the given router.
func RegisterRoutes(r chi.Router, index *Index, store *Store) {
	r.Get("/api/knowledge/search", searchHandler(index))
	r.Get("/api/knowledge/stale", staleHandler(store))
	r.Put("/api/knowledge/items", upsertHandler(index, store))
}

func searchHandler(index *Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}

		filter := SearchFilter{
			Industry: r.URL.Query().Get("industry"),
			Category: r.URL.Query().Get("category"),
		}
		if v := r.URL.Query().Get("content_type"); v != "" {
			if !ValidContentTypes[ContentType(v)] {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown content_type " + v})
				return
			}
			filter.ContentType = ContentType(v)
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				filter.TopK = n
			}
		}

		results, err := index.Search(r.Context(), query, filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if results == nil {
			results = []SearchResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func staleHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.ListStale(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if items == nil {
			items = []Item{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// upsertHandler is the curation writer path: it stores the item and embeds
// its new content in the same request.
func upsertHandler(index *Index, store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if item.Title == "" || item.Body == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and body are required"})
			return
		}

		if err := store.Upsert(r.Context(), &item); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := index.IndexItem(r.Context(), &item); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "version": item.Version})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
