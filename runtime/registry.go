package runtime

import (
	"sync"

	"dm-relay/contract"

	"github.com/google/uuid"
)

// ConnectionRegistry is the authoritative in-memory map from user id to
// the single active connection handle for that user. An inverse index
// (handle -> user id) is kept alongside the forward map so disconnects
// resolve their owner without scanning.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]contract.EventSink
	owners   map[contract.EventSink]uuid.UUID
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions: make(map[uuid.UUID]contract.EventSink),
		owners:   make(map[contract.EventSink]uuid.UUID),
	}
}

// Register unconditionally overwrites any prior mapping for userID and
// returns the superseded handle, if any. The caller uses the returned
// handle to recognize (and ignore) late disconnect events from it.
func (r *ConnectionRegistry) Register(userID uuid.UUID, sink contract.EventSink) contract.EventSink {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.sessions[userID]
	if previous != nil {
		delete(r.owners, previous)
	}
	r.sessions[userID] = sink
	r.owners[sink] = userID
	return previous
}

// Unregister removes the mapping only if sink is still the currently
// registered handle for userID. A false return means the handle was
// already superseded by a reconnect and the entry was left untouched.
func (r *ConnectionRegistry) Unregister(userID uuid.UUID, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current != sink {
		return false
	}
	delete(r.sessions, userID)
	delete(r.owners, sink)
	return true
}

// Lookup resolves a user's live handle. Absence means the user is
// unreachable right now, not an error.
func (r *ConnectionRegistry) Lookup(userID uuid.UUID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[userID]
	return sink, ok
}

// Owner resolves which user a handle belongs to. Superseded handles are
// removed from the inverse index at registration time, so they resolve
// to nothing here.
func (r *ConnectionRegistry) Owner(sink contract.EventSink) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.owners[sink]
	return userID, ok
}

// Snapshot returns a copy of all live handles, for presence broadcast.
// Delivery happens outside the lock.
func (r *ConnectionRegistry) Snapshot() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
