package connection

import "sync"

// Presence tracks the connectivity of observed users as reported by the
// server's userConnected/userDisconnected notifications.
type Presence struct {
	mu     sync.RWMutex
	online map[string]bool
}

// NewPresence creates an empty presence map.
func NewPresence() *Presence {
	return &Presence{
		online: make(map[string]bool),
	}
}

// SetOnline records a user's connectivity.
func (p *Presence) SetOnline(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

// IsOnline reports the last known connectivity of a user. Users never
// observed report false.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online[userID]
}

// Forget drops a user's presence record, typically after unobserving.
func (p *Presence) Forget(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
}
