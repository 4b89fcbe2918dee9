package memstore

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/chatstream/internal/server"
)

func seededStore(t *testing.T, count int) (*Store, []ChatMessage) {
	t.Helper()

	store := NewStore()
	store.AddRoom("room", "alice", "bob")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages := make([]ChatMessage, count)
	for i := range messages {
		messages[i] = ChatMessage{
			ID:     string(rune('a' + i)),
			UserID: "alice",
			Text:   "message " + string(rune('a'+i)),
			SentAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	store.Seed("room", messages...)

	return store, messages
}

func ids(messages []ChatMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestFetchMessagesTail(t *testing.T) {
	store, _ := seededStore(t, 10)

	result, err := store.FetchMessages(context.Background(), "room", 4, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"g", "h", "i", "j"}, ids(result.Messages))
	assert.False(t, result.NoMessagesBefore)
	assert.True(t, result.NoMessagesAfter)
}

func TestFetchMessagesBeforeAnchor(t *testing.T) {
	store, messages := seededStore(t, 10)

	result, err := store.FetchMessages(context.Background(), "room", 3, &messages[5], nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d", "e"}, ids(result.Messages))
	assert.False(t, result.NoMessagesBefore)
	assert.False(t, result.NoMessagesAfter)

	// Anchored at the second message the page hits the start of the log.
	result, err = store.FetchMessages(context.Background(), "room", 3, &messages[1], nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(result.Messages))
	assert.True(t, result.NoMessagesBefore)
}

func TestFetchMessagesAfterAnchor(t *testing.T) {
	store, messages := seededStore(t, 10)

	result, err := store.FetchMessages(context.Background(), "room", 3, nil, &messages[5])
	require.NoError(t, err)

	assert.Equal(t, []string{"g", "h", "i"}, ids(result.Messages))
	assert.False(t, result.NoMessagesAfter)
	assert.False(t, result.NoMessagesBefore)

	result, err = store.FetchMessages(context.Background(), "room", 3, nil, &messages[8])
	require.NoError(t, err)
	assert.Equal(t, []string{"j"}, ids(result.Messages))
	assert.True(t, result.NoMessagesAfter)
}

func TestFetchMessagesUnknownRoom(t *testing.T) {
	store := NewStore()

	_, err := store.FetchMessages(context.Background(), "nope", 3, nil, nil)
	assert.Error(t, err)
}

func TestSearchMessages(t *testing.T) {
	store := NewStore()
	store.AddRoom("room", "alice")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Seed("room",
		ChatMessage{ID: "1", Text: "Hello world", SentAt: base},
		ChatMessage{ID: "2", Text: "goodbye", SentAt: base.Add(time.Minute)},
		ChatMessage{ID: "3", Text: "hello again", SentAt: base.Add(2 * time.Minute)},
	)

	result, err := store.SearchMessages(context.Background(), "room", "hello")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, []string{"1", "3"}, ids(result.Results))
}

func TestSaveMessageStampsAndAppends(t *testing.T) {
	store := NewStore()
	store.AddRoom("room", "alice")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	info := server.ConnectionInfo{UserID: "alice"}
	saved, err := store.SaveMessage(context.Background(), info, json.RawMessage(`{"text":"hi"}`), "room")
	require.NoError(t, err)

	var message ChatMessage
	require.NoError(t, json.Unmarshal(saved, &message))
	assert.NotEmpty(t, message.ID)
	assert.Equal(t, "alice", message.UserID)
	assert.Equal(t, "hi", message.Text)
	assert.Equal(t, now, message.SentAt)

	result, err := store.FetchMessages(context.Background(), "room", 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, message.ID, result.Messages[0].ID)
}

func TestSaveMessageUnknownRoom(t *testing.T) {
	store := NewStore()

	_, err := store.SaveMessage(context.Background(), server.ConnectionInfo{UserID: "alice"}, json.RawMessage(`{}`), "room")
	assert.Error(t, err)
}

func TestFetchConnectionInfoFromQuery(t *testing.T) {
	store := NewStore()

	r := httptest.NewRequest("GET", "/ws?user=alice", nil)
	info, err := store.FetchConnectionInfo(r)
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserID)

	r = httptest.NewRequest("GET", "/ws", nil)
	_, err = store.FetchConnectionInfo(r)
	assert.Error(t, err)
}

func TestCompareMessagesOrdersByTimeThenID(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := ChatMessage{ID: "a", SentAt: base}
	b := ChatMessage{ID: "b", SentAt: base}
	later := ChatMessage{ID: "a", SentAt: base.Add(time.Second)}

	assert.Negative(t, CompareMessages(a, later))
	assert.Positive(t, CompareMessages(later, a))
	assert.Negative(t, CompareMessages(a, b))
	assert.Zero(t, CompareMessages(a, a))
}
