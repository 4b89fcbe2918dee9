package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/yourusername/chatstream/internal/feed"
	"github.com/yourusername/chatstream/internal/memstore"
)

// HistoryAPI fetches message history over the server's HTTP history
// endpoints. It implements feed.MessageSource for the demo message type.
type HistoryAPI struct {
	baseURL string
	client  *http.Client
}

// NewHistoryAPI creates a history client against the given base URL, e.g.
// http://localhost:8080.
func NewHistoryAPI(baseURL string) *HistoryAPI {
	return &HistoryAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchMessages requests a page of history around the given anchors.
func (h *HistoryAPI) FetchMessages(ctx context.Context, roomID string, count int, before, after *memstore.ChatMessage) (feed.FetchResult[memstore.ChatMessage], error) {
	body := struct {
		RoomID string                `json:"roomId"`
		Count  int                   `json:"count"`
		Before *memstore.ChatMessage `json:"before,omitempty"`
		After  *memstore.ChatMessage `json:"after,omitempty"`
	}{roomID, count, before, after}

	var result struct {
		Messages         []memstore.ChatMessage `json:"messages"`
		NoMessagesBefore bool                   `json:"noMessagesBefore"`
		NoMessagesAfter  bool                   `json:"noMessagesAfter"`
	}
	if err := h.post(ctx, "/api/fetch", body, &result); err != nil {
		return feed.FetchResult[memstore.ChatMessage]{}, err
	}

	return feed.FetchResult[memstore.ChatMessage]{
		Messages:         result.Messages,
		NoMessagesBefore: result.NoMessagesBefore,
		NoMessagesAfter:  result.NoMessagesAfter,
	}, nil
}

// SearchMessages runs a history search.
func (h *HistoryAPI) SearchMessages(ctx context.Context, roomID string, criteria string) (feed.SearchResult[memstore.ChatMessage], error) {
	body := struct {
		RoomID   string `json:"roomId"`
		Criteria string `json:"criteria"`
	}{roomID, criteria}

	var result struct {
		Results    []memstore.ChatMessage `json:"results"`
		TotalCount int                    `json:"totalCount"`
	}
	if err := h.post(ctx, "/api/search", body, &result); err != nil {
		return feed.SearchResult[memstore.ChatMessage]{}, err
	}

	return feed.SearchResult[memstore.ChatMessage]{
		Results:    result.Results,
		TotalCount: result.TotalCount,
	}, nil
}

func (h *HistoryAPI) post(ctx context.Context, path string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "history request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("history request failed: %s", resp.Status)
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
