package memstore

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/yourusername/chatstream/internal/feed"
	"github.com/yourusername/chatstream/internal/server"
)

// ChatMessage is the message shape the demo binaries and tests exchange.
type ChatMessage struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// MessageKey returns the stable identity of a message.
func MessageKey(m ChatMessage) string {
	return m.ID
}

// CompareMessages orders messages by send time, breaking ties by ID so the
// order is total.
func CompareMessages(a, b ChatMessage) int {
	switch {
	case a.SentAt.Before(b.SentAt):
		return -1
	case a.SentAt.After(b.SentAt):
		return 1
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

// Store is an in-memory chat backend. It implements both collaborator
// surfaces: server.Service for the websocket server and feed.MessageSource
// for pagination, so the demo binaries and the tests run without external
// infrastructure.
type Store struct {
	mu           sync.RWMutex
	rooms        map[string][]ChatMessage
	participants map[string][]string

	// Now is the clock used to stamp saved messages. Replaceable in tests.
	Now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		rooms:        make(map[string][]ChatMessage),
		participants: make(map[string][]string),
		Now:          time.Now,
	}
}

// AddRoom registers a room with its participant user IDs.
func (s *Store) AddRoom(roomID string, participants ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[roomID] = participants
	if s.rooms[roomID] == nil {
		s.rooms[roomID] = []ChatMessage{}
	}
}

// Seed inserts messages into a room keeping the log sorted.
func (s *Store) Seed(roomID string, messages ...ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.rooms[roomID], messages...)
	sort.Slice(log, func(i, j int) bool {
		return CompareMessages(log[i], log[j]) < 0
	})
	s.rooms[roomID] = log
}

// FetchConnectionInfo authenticates by the user query parameter. Real
// deployments replace this with their own Service.
func (s *Store) FetchConnectionInfo(r *http.Request) (server.ConnectionInfo, error) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		return server.ConnectionInfo{}, errors.New("missing user parameter")
	}

	return server.ConnectionInfo{UserID: userID}, nil
}

// GetChatParticipants returns the room's participant user IDs.
func (s *Store) GetChatParticipants(ctx context.Context, info server.ConnectionInfo, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants, ok := s.participants[roomID]
	if !ok {
		return nil, errors.Errorf("unknown room %s", roomID)
	}

	return participants, nil
}

// SaveMessage stamps the incoming body with an ID, the sender and the send
// time, appends it to the room log and returns the stamped body.
func (s *Store) SaveMessage(ctx context.Context, info server.ConnectionInfo, raw json.RawMessage, roomID string) (json.RawMessage, error) {
	var message ChatMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		return nil, errors.Wrap(err, "decode message body")
	}

	s.mu.Lock()
	if _, ok := s.participants[roomID]; !ok {
		s.mu.Unlock()
		return nil, errors.Errorf("unknown room %s", roomID)
	}

	message.ID = uuid.New().String()
	message.UserID = info.UserID
	message.SentAt = s.Now()

	s.rooms[roomID] = append(s.rooms[roomID], message)
	s.mu.Unlock()

	return json.Marshal(message)
}

// FetchMessages returns a page of the room log around the given anchors.
// A before anchor yields the count messages strictly preceding it, an after
// anchor the count messages strictly following it, and no anchor the newest
// count messages.
func (s *Store) FetchMessages(ctx context.Context, roomID string, count int, before, after *ChatMessage) (feed.FetchResult[ChatMessage], error) {
	s.mu.RLock()
	log, ok := s.rooms[roomID]
	s.mu.RUnlock()

	if !ok {
		return feed.FetchResult[ChatMessage]{}, errors.Errorf("unknown room %s", roomID)
	}

	switch {
	case before != nil:
		end := sort.Search(len(log), func(i int) bool {
			return CompareMessages(log[i], *before) >= 0
		})
		start := end - count
		if start < 0 {
			start = 0
		}
		afterAnchor := sort.Search(len(log), func(i int) bool {
			return CompareMessages(log[i], *before) > 0
		})

		return feed.FetchResult[ChatMessage]{
			Messages:         page(log, start, end),
			NoMessagesBefore: start == 0,
			NoMessagesAfter:  afterAnchor == len(log),
		}, nil

	case after != nil:
		start := sort.Search(len(log), func(i int) bool {
			return CompareMessages(log[i], *after) > 0
		})
		end := start + count
		if end > len(log) {
			end = len(log)
		}
		beforeAnchor := sort.Search(len(log), func(i int) bool {
			return CompareMessages(log[i], *after) >= 0
		})

		return feed.FetchResult[ChatMessage]{
			Messages:         page(log, start, end),
			NoMessagesBefore: beforeAnchor == 0,
			NoMessagesAfter:  end == len(log),
		}, nil

	default:
		start := len(log) - count
		if start < 0 {
			start = 0
		}

		return feed.FetchResult[ChatMessage]{
			Messages:         page(log, start, len(log)),
			NoMessagesBefore: start == 0,
			NoMessagesAfter:  true,
		}, nil
	}
}

// SearchMessages returns every message whose text contains the criteria,
// case-insensitively, in log order.
func (s *Store) SearchMessages(ctx context.Context, roomID string, criteria string) (feed.SearchResult[ChatMessage], error) {
	s.mu.RLock()
	log, ok := s.rooms[roomID]
	s.mu.RUnlock()

	if !ok {
		return feed.SearchResult[ChatMessage]{}, errors.Errorf("unknown room %s", roomID)
	}

	needle := strings.ToLower(criteria)
	var results []ChatMessage
	for _, message := range log {
		if strings.Contains(strings.ToLower(message.Text), needle) {
			results = append(results, message)
		}
	}

	return feed.SearchResult[ChatMessage]{
		Results:    results,
		TotalCount: len(results),
	}, nil
}

func page(log []ChatMessage, start, end int) []ChatMessage {
	out := make([]ChatMessage, end-start)
	copy(out, log[start:end])
	return out
}
