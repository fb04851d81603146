package runtime

import (
	"chat-link/contract"
	"sync"
)

// Registry is the session registry: one live connection per user, last registration wins.
// It is owned by whoever builds it and injected into the websocket layer and the coordinator.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.Connection // map user -> connection
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.Connection)}
}

// Register overwrites any previous connection of userID.
func (r *Registry) Register(userID string, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = conn
}

func (r *Registry) Lookup(userID string) (contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.sessions[userID]
	return conn, ok
}

// Unregister removes userID only while conn is still its registered connection,
// so an old socket closing late never evicts the newer one.
func (r *Registry) Unregister(userID string, conn contract.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current.ID() != conn.ID() {
		return false
	}
	delete(r.sessions, userID)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
