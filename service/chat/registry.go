package chat

import (
	"sort"
	"sync"
)

// Mutation describes one effective registry change.
type Mutation struct {
	UserID string
	ConnID string
	Added  bool
}

// Registry maps a user to its live connections. It never owns a handle;
// the transport registers on connect and unregisters on teardown.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]Handle // user -> conn_id -> handle

	obsMu     sync.RWMutex
	observers []func(Mutation)
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[string]Handle)}
}

// Observe adds a callback run synchronously after every effective mutation.
func (r *Registry) Observe(fn func(Mutation)) {
	r.obsMu.Lock()
	r.observers = append(r.observers, fn)
	r.obsMu.Unlock()
}

// Register adds h under userID. Registering the same handle again is a no-op.
func (r *Registry) Register(userID string, h Handle) {
	r.mu.Lock()
	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]Handle)
		r.byUser[userID] = m
	}
	_, existed := m[h.ID()]
	m[h.ID()] = h
	r.mu.Unlock()

	if !existed {
		r.notify(Mutation{UserID: userID, ConnID: h.ID(), Added: true})
	}
}

// Unregister removes exactly h; the user leaves the online set with its last handle.
func (r *Registry) Unregister(userID string, h Handle) {
	r.mu.Lock()
	m := r.byUser[userID]
	cur, ok := m[h.ID()]
	removed := ok && cur == h
	if removed {
		delete(m, h.ID())
		if len(m) == 0 {
			delete(r.byUser, userID)
		}
	}
	r.mu.Unlock()

	if removed {
		r.notify(Mutation{UserID: userID, ConnID: h.ID(), Added: false})
	}
}

// Resolve returns the user's handles; empty for unknown or offline users.
func (r *Registry) Resolve(userID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]Handle, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	return out
}

// Online is the local presence set, sorted.
func (r *Registry) Online() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// All returns every live handle on this node.
func (r *Registry) All() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handle
	for _, m := range r.byUser {
		for _, h := range m {
			out = append(out, h)
		}
	}
	return out
}

func (r *Registry) notify(m Mutation) {
	r.obsMu.RLock()
	obs := r.observers
	r.obsMu.RUnlock()
	for _, fn := range obs {
		fn(m)
	}
}
