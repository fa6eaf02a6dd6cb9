package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/VeniVidiTass/websocket-alive/internal/metrics"
)

// Registry is the authoritative index correlating connections to codes.
// forward and reverse are kept mutually consistent under one mutex:
// reverse[c] == code exactly when c is in forward[code]. A connection
// subscribes to at most one code at a time.
type Registry struct {
	mu      sync.Mutex
	forward map[string]map[uuid.UUID]struct{}
	reverse map[uuid.UUID]string
}

func New() *Registry {
	return &Registry{
		forward: make(map[string]map[uuid.UUID]struct{}),
		reverse: make(map[uuid.UUID]string),
	}
}

// Join subscribes connID to code, replacing any previous subscription.
// Rejoining the same code is a no-op.
func (r *Registry) Join(connID uuid.UUID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.reverse[connID]
	if ok && previous == code {
		return
	}
	if ok {
		r.removeLocked(connID, previous)
	}

	members, ok := r.forward[code]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		r.forward[code] = members
	}
	members[connID] = struct{}{}
	r.reverse[connID] = code

	metrics.ActiveCodes.Set(float64(len(r.forward)))
}

// Leave removes connID's subscription, if any. Safe to call more than once.
func (r *Registry) Leave(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.reverse[connID]
	if !ok {
		return
	}
	r.removeLocked(connID, code)
	metrics.ActiveCodes.Set(float64(len(r.forward)))
}

// MembersOf returns a snapshot of the connections subscribed to code.
// The returned slice is a copy; later Join/Leave calls do not affect it.
func (r *Registry) MembersOf(code string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.forward[code]
	snapshot := make([]uuid.UUID, 0, len(members))
	for connID := range members {
		snapshot = append(snapshot, connID)
	}
	return snapshot
}

// CodeOf returns the code connID is subscribed to, if any.
func (r *Registry) CodeOf(connID uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.reverse[connID]
	return code, ok
}

// Counts returns the number of subscribed connections and of active codes.
func (r *Registry) Counts() (conns, codes int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.reverse), len(r.forward)
}

func (r *Registry) removeLocked(connID uuid.UUID, code string) {
	members, ok := r.forward[code]
	if ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.forward, code)
		}
	}
	delete(r.reverse, connID)
}
