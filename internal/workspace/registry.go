package workspace

import (
	"sync"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"
)

type registryEntry struct {
	ws       *Workspace
	lastUsed time.Time
}

// Registry hands out one workspace per user so concurrent requests of the
// same user share a cache
type Registry struct {
	deps Deps
	now  func() time.Time

	mu         sync.Mutex
	workspaces map[string]*registryEntry
}

func NewRegistry(deps Deps) *Registry {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{deps: deps, now: now, workspaces: make(map[string]*registryEntry)}
}

// For returns the workspace of session's user, creating it on first use.
// A nil session gets a fresh unauthenticated workspace.
func (r *Registry) For(session *authdomain.Session) *Workspace {
	if session == nil || session.UID == "" {
		return New(nil, r.deps)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.workspaces[session.UID]
	if !ok {
		s := *session
		entry = &registryEntry{ws: New(&s, r.deps)}
		r.workspaces[session.UID] = entry
	}
	entry.lastUsed = r.now()
	return entry.ws
}

// Forget drops a user's cached workspace so the next request reloads it
// from the store
func (r *Registry) Forget(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, uid)
}

// Evict drops workspaces not used for longer than idle and returns how
// many were dropped
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for uid, entry := range r.workspaces {
		if entry.lastUsed.Before(cutoff) {
			delete(r.workspaces, uid)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
