package server

import (
	"context"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/yourusername/chatstream/internal/protocol"
)

const (
	// ttlLong keeps actively broadcasting rooms hot for an hour.
	ttlLong = time.Hour
	// ttlShort keeps merely preheated rooms for two minutes.
	ttlShort = 2 * time.Minute

	maxCachedRooms = 1000
)

// ErrForbidden is returned when a non-participant attempts to broadcast.
var ErrForbidden = errors.New("Forbidden")

// Socket is a live connection the registry fans out to. The websocket Client
// implements it; tests use fakes.
type Socket interface {
	Info() ConnectionInfo
	Send(data []byte)
}

// ParticipantFetcher looks up a room's participant user identifiers from the
// external service.
type ParticipantFetcher func(ctx context.Context, info ConnectionInfo, roomID string) ([]string, error)

// RoomManager maps users to their live sockets and rooms to broadcast
// groups. Participant sets are cached in an LRU; room activity is tracked
// with TTLs so idle rooms cool down and their groups are torn apart.
type RoomManager struct {
	mu                sync.Mutex
	fetchParticipants ParticipantFetcher

	userSockets map[string]map[Socket]struct{}
	groups      map[string]map[Socket]struct{}
	observers   map[string]map[Socket]struct{}

	participants *lru.Cache[string, map[string]struct{}]
	activeRooms  *ttlCache
}

// NewRoomManager creates a room manager backed by the given participant
// lookup.
func NewRoomManager(fetchParticipants ParticipantFetcher) *RoomManager {
	participants, _ := lru.New[string, map[string]struct{}](maxCachedRooms)

	rm := &RoomManager{
		fetchParticipants: fetchParticipants,
		userSockets:       make(map[string]map[Socket]struct{}),
		groups:            make(map[string]map[Socket]struct{}),
		observers:         make(map[string]map[Socket]struct{}),
		participants:      participants,
	}
	rm.activeRooms = newTTLCache(rm.dropGroup)

	return rm
}

// StartSweeper runs TTL eviction until ctx is cancelled.
func (rm *RoomManager) StartSweeper(ctx context.Context, interval time.Duration) {
	rm.activeRooms.StartSweeper(ctx, interval)
}

// Sweep evicts expired rooms immediately. Exposed for tests.
func (rm *RoomManager) Sweep() {
	rm.activeRooms.Sweep()
}

func (rm *RoomManager) dropGroup(roomID string) {
	rm.mu.Lock()
	delete(rm.groups, roomID)
	rm.mu.Unlock()

	log.Printf("room %s cooled down, broadcast group dropped", roomID)
}

// SocketCount returns the number of live sockets for a user.
func (rm *RoomManager) SocketCount(userID string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return len(rm.userSockets[userID])
}

// IsUserConnected reports whether the user has at least one live socket.
func (rm *RoomManager) IsUserConnected(userID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return len(rm.userSockets[userID]) > 0
}

// HandleConnect registers a new socket. The user's first socket notifies
// presence observers, and the socket joins every active room the user
// participates in so a newly connecting device receives live messages.
func (rm *RoomManager) HandleConnect(ctx context.Context, socket Socket) {
	userID := socket.Info().UserID

	rm.mu.Lock()
	first := len(rm.userSockets[userID]) == 0
	if rm.userSockets[userID] == nil {
		rm.userSockets[userID] = make(map[Socket]struct{})
	}
	rm.userSockets[userID][socket] = struct{}{}
	rm.mu.Unlock()

	if first {
		rm.notifyPresence(userID, true)
	}

	for _, roomID := range rm.activeRooms.Keys() {
		participants := rm.tryGetParticipants(ctx, socket.Info(), roomID)
		if _, ok := participants[userID]; ok {
			rm.join(roomID, socket)
		}
	}
}

// HandleDisconnect removes a socket; the user's last socket notifies
// presence observers.
func (rm *RoomManager) HandleDisconnect(socket Socket) {
	userID := socket.Info().UserID

	rm.mu.Lock()
	sockets := rm.userSockets[userID]
	delete(sockets, socket)
	last := len(sockets) == 0
	if last {
		delete(rm.userSockets, userID)
	}

	for _, group := range rm.groups {
		delete(group, socket)
	}
	for _, observerSet := range rm.observers {
		delete(observerSet, socket)
	}
	rm.mu.Unlock()

	if last {
		rm.notifyPresence(userID, false)
	}
}

// Broadcast opens a fan-out handle to a room. The sender must be a
// participant, otherwise ErrForbidden. An inactive room is preheated first;
// broadcasting refreshes the room's TTL to the long tier.
func (rm *RoomManager) Broadcast(ctx context.Context, socket Socket, roomID string) (*Broadcast, error) {
	participants := rm.tryGetParticipants(ctx, socket.Info(), roomID)

	if _, ok := participants[socket.Info().UserID]; !ok {
		return nil, ErrForbidden
	}

	if !rm.activeRooms.Has(roomID) {
		rm.preheat(roomID, participants)
	}

	rm.activeRooms.Set(roomID, ttlLong)

	rm.mu.Lock()
	sockets := make([]Socket, 0, len(rm.groups[roomID]))
	for s := range rm.groups[roomID] {
		sockets = append(sockets, s)
	}
	rm.mu.Unlock()

	return &Broadcast{sockets: sockets}, nil
}

// PreheatRoom proactively joins the currently connected participant sockets
// to the room's broadcast group before the first message needs to fan out.
func (rm *RoomManager) PreheatRoom(ctx context.Context, info ConnectionInfo, roomID string) {
	participants := rm.tryGetParticipants(ctx, info, roomID)
	if len(participants) == 0 {
		return
	}

	rm.preheat(roomID, participants)
}

func (rm *RoomManager) preheat(roomID string, participants map[string]struct{}) {
	rm.mu.Lock()
	for userID := range participants {
		for socket := range rm.userSockets[userID] {
			if rm.groups[roomID] == nil {
				rm.groups[roomID] = make(map[Socket]struct{})
			}
			rm.groups[roomID][socket] = struct{}{}
		}
	}
	rm.mu.Unlock()

	rm.activeRooms.Set(roomID, ttlShort)
}

func (rm *RoomManager) join(roomID string, socket Socket) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.groups[roomID] == nil {
		rm.groups[roomID] = make(map[Socket]struct{})
	}
	rm.groups[roomID][socket] = struct{}{}
}

// InvalidateRoomParticipants drops the cached participant set and deactivates
// the room so the next broadcast re-fetches and re-joins.
func (rm *RoomManager) InvalidateRoomParticipants(roomID string) {
	rm.participants.Remove(roomID)
	rm.activeRooms.Delete(roomID)

	rm.mu.Lock()
	delete(rm.groups, roomID)
	rm.mu.Unlock()
}

// tryGetParticipants returns the room's participant set, fetching and caching
// it on first use. Lookup failures degrade to an empty set so broadcast stays
// a safe no-op instead of crashing the connection path.
func (rm *RoomManager) tryGetParticipants(ctx context.Context, info ConnectionInfo, roomID string) map[string]struct{} {
	if cached, ok := rm.participants.Get(roomID); ok {
		return cached
	}

	fetched, err := rm.fetchParticipants(ctx, info, roomID)
	if err != nil {
		log.Printf("failed to fetch participants for room %s: %v", roomID, err)
		return map[string]struct{}{}
	}

	participants := make(map[string]struct{}, len(fetched))
	for _, userID := range fetched {
		participants[userID] = struct{}{}
	}
	rm.participants.Add(roomID, participants)

	return participants
}

// ObserveUser subscribes the socket to presence notifications for a user and
// immediately echoes the user's current connectivity.
func (rm *RoomManager) ObserveUser(socket Socket, userID string) {
	rm.mu.Lock()
	if rm.observers[userID] == nil {
		rm.observers[userID] = make(map[Socket]struct{})
	}
	rm.observers[userID][socket] = struct{}{}
	rm.mu.Unlock()

	msgType := protocol.MsgUserDisconnected
	if rm.IsUserConnected(userID) {
		msgType = protocol.MsgUserConnected
	}

	if data, err := protocol.EncodeMessage(msgType, protocol.UserPresencePayload{UserID: userID}); err == nil {
		socket.Send(data)
	}
}

// UnobserveUser removes the socket's presence subscription for a user.
func (rm *RoomManager) UnobserveUser(socket Socket, userID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.observers[userID], socket)
}

func (rm *RoomManager) notifyPresence(userID string, connected bool) {
	msgType := protocol.MsgUserDisconnected
	if connected {
		msgType = protocol.MsgUserConnected
	}

	data, err := protocol.EncodeMessage(msgType, protocol.UserPresencePayload{UserID: userID})
	if err != nil {
		return
	}

	rm.mu.Lock()
	sockets := make([]Socket, 0, len(rm.observers[userID]))
	for socket := range rm.observers[userID] {
		sockets = append(sockets, socket)
	}
	rm.mu.Unlock()

	for _, socket := range sockets {
		socket.Send(data)
	}
}

// Broadcast is a fan-out handle over the sockets of a room's broadcast group
// at the time it was opened.
type Broadcast struct {
	sockets []Socket
}

// Send encodes the message once and delivers it to every socket in the group.
func (b *Broadcast) Send(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.EncodeMessage(msgType, payload)
	if err != nil {
		return errors.Wrap(err, "encode broadcast message")
	}

	for _, socket := range b.sockets {
		socket.Send(data)
	}

	return nil
}

// Size returns the number of sockets the handle fans out to.
func (b *Broadcast) Size() int {
	return len(b.sockets)
}
