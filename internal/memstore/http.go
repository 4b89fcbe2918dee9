package memstore

import (
	"encoding/json"
	"log"
	"net/http"
)

// fetchRequest is the wire form of a pagination call.
type fetchRequest struct {
	RoomID string       `json:"roomId"`
	Count  int          `json:"count"`
	Before *ChatMessage `json:"before,omitempty"`
	After  *ChatMessage `json:"after,omitempty"`
}

type fetchResponse struct {
	Messages         []ChatMessage `json:"messages"`
	NoMessagesBefore bool          `json:"noMessagesBefore"`
	NoMessagesAfter  bool          `json:"noMessagesAfter"`
}

type searchRequest struct {
	RoomID   string `json:"roomId"`
	Criteria string `json:"criteria"`
}

type searchResponse struct {
	Results    []ChatMessage `json:"results"`
	TotalCount int           `json:"totalCount"`
}

// NewHandler exposes the store's history API over HTTP for the demo client:
// POST /api/fetch and POST /api/search with JSON bodies.
func NewHandler(store *Store) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/fetch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req fetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		result, err := store.FetchMessages(r.Context(), req.RoomID, req.Count, req.Before, req.After)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		writeJSON(w, fetchResponse{
			Messages:         result.Messages,
			NoMessagesBefore: result.NoMessagesBefore,
			NoMessagesAfter:  result.NoMessagesAfter,
		})
	})

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		result, err := store.SearchMessages(r.Context(), req.RoomID, req.Criteria)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		writeJSON(w, searchResponse{
			Results:    result.Results,
			TotalCount: result.TotalCount,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("memstore: failed to encode response: %v", err)
	}
}
