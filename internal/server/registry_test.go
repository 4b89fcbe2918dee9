package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/chatstream/internal/protocol"
)

type fakeSocket struct {
	mu   sync.Mutex
	info ConnectionInfo
	sent [][]byte
}

func newFakeSocket(userID string) *fakeSocket {
	return &fakeSocket{info: ConnectionInfo{UserID: userID}}
}

func (s *fakeSocket) Info() ConnectionInfo {
	return s.info
}

func (s *fakeSocket) Send(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
}

func (s *fakeSocket) received() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]protocol.Message, 0, len(s.sent))
	for _, data := range s.sent {
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			continue
		}
		messages = append(messages, *msg)
	}
	return messages
}

func staticParticipants(users ...string) ParticipantFetcher {
	return func(ctx context.Context, info ConnectionInfo, roomID string) ([]string, error) {
		return users, nil
	}
}

func TestBroadcastRejectsNonParticipant(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice"))

	mallory := newFakeSocket("mallory")
	rm.HandleConnect(context.Background(), mallory)

	_, err := rm.Broadcast(context.Background(), mallory, "room")
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestBroadcastFansOutToParticipants(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice", "bob"))

	alice := newFakeSocket("alice")
	bob := newFakeSocket("bob")
	rm.HandleConnect(context.Background(), alice)
	rm.HandleConnect(context.Background(), bob)

	broadcast, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)
	assert.Equal(t, 2, broadcast.Size())

	require.NoError(t, broadcast.Send(protocol.MsgReceiveMessage, protocol.ReceiveMessagePayload{
		RoomID:  "room",
		Message: json.RawMessage(`{"text":"hi"}`),
	}))

	for _, socket := range []*fakeSocket{alice, bob} {
		messages := socket.received()
		require.Len(t, messages, 1)
		assert.Equal(t, protocol.MsgReceiveMessage, messages[0].Type)
	}
}

func TestBroadcastExcludesDisconnectedSockets(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice", "bob"))

	alice := newFakeSocket("alice")
	bob := newFakeSocket("bob")
	rm.HandleConnect(context.Background(), alice)
	rm.HandleConnect(context.Background(), bob)

	_, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)

	rm.HandleDisconnect(bob)

	broadcast, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)
	assert.Equal(t, 1, broadcast.Size())
}

func TestParticipantLookupFailureDegradesToEmptySet(t *testing.T) {
	rm := NewRoomManager(func(ctx context.Context, info ConnectionInfo, roomID string) ([]string, error) {
		return nil, errors.New("backend down")
	})

	alice := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), alice)

	_, err := rm.Broadcast(context.Background(), alice, "room")
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestParticipantsAreCached(t *testing.T) {
	var fetches int32
	rm := NewRoomManager(func(ctx context.Context, info ConnectionInfo, roomID string) ([]string, error) {
		atomic.AddInt32(&fetches, 1)
		return []string{"alice"}, nil
	})

	alice := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), alice)

	_, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)
	_, err = rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))

	rm.InvalidateRoomParticipants("room")
	_, err = rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestConnectJoinsActiveRooms(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice", "bob"))

	alice := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), alice)

	// Activates the room while bob is offline.
	_, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)

	// A participant connecting afterwards joins the hot room right away.
	bob := newFakeSocket("bob")
	rm.HandleConnect(context.Background(), bob)

	broadcast, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)
	assert.Equal(t, 2, broadcast.Size())
}

func TestRoomCooldownDropsGroup(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice"))

	alice := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), alice)

	_, err := rm.Broadcast(context.Background(), alice, "room")
	require.NoError(t, err)

	rm.mu.Lock()
	groupSize := len(rm.groups["room"])
	rm.mu.Unlock()
	assert.Equal(t, 1, groupSize)

	// Force the TTL into the past and sweep.
	rm.activeRooms.Set("room", -time.Second)
	rm.Sweep()

	rm.mu.Lock()
	_, ok := rm.groups["room"]
	rm.mu.Unlock()
	assert.False(t, ok, "cooled down room keeps no broadcast group")
}

func TestObserveUserEchoesCurrentPresence(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice", "bob"))

	observer := newFakeSocket("bob")
	rm.HandleConnect(context.Background(), observer)

	rm.ObserveUser(observer, "alice")
	messages := observer.received()
	require.NotEmpty(t, messages)
	assert.Equal(t, protocol.MsgUserDisconnected, messages[len(messages)-1].Type)

	alice := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), alice)

	messages = observer.received()
	assert.Equal(t, protocol.MsgUserConnected, messages[len(messages)-1].Type)

	rm.HandleDisconnect(alice)
	messages = observer.received()
	assert.Equal(t, protocol.MsgUserDisconnected, messages[len(messages)-1].Type)
}

func TestPresenceNotifiesOnlyOnFirstAndLastSocket(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice", "bob"))

	observer := newFakeSocket("bob")
	rm.HandleConnect(context.Background(), observer)
	rm.ObserveUser(observer, "alice")
	baseline := len(observer.received())

	first := newFakeSocket("alice")
	second := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), first)
	rm.HandleConnect(context.Background(), second)

	// Only the first socket generated a notification.
	assert.Len(t, observer.received(), baseline+1)

	rm.HandleDisconnect(first)
	assert.Len(t, observer.received(), baseline+1)

	rm.HandleDisconnect(second)
	assert.Len(t, observer.received(), baseline+2)
}

func TestUnobserveStopsNotifications(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice", "bob"))

	observer := newFakeSocket("bob")
	rm.HandleConnect(context.Background(), observer)
	rm.ObserveUser(observer, "alice")
	rm.UnobserveUser(observer, "alice")
	baseline := len(observer.received())

	alice := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), alice)
	assert.Len(t, observer.received(), baseline)
}

func TestSocketCount(t *testing.T) {
	rm := NewRoomManager(staticParticipants("alice"))

	assert.Equal(t, 0, rm.SocketCount("alice"))
	assert.False(t, rm.IsUserConnected("alice"))

	first := newFakeSocket("alice")
	second := newFakeSocket("alice")
	rm.HandleConnect(context.Background(), first)
	rm.HandleConnect(context.Background(), second)

	assert.Equal(t, 2, rm.SocketCount("alice"))
	assert.True(t, rm.IsUserConnected("alice"))

	rm.HandleDisconnect(first)
	rm.HandleDisconnect(second)
	assert.Equal(t, 0, rm.SocketCount("alice"))
	assert.False(t, rm.IsUserConnected("alice"))
}
