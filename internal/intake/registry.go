package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentalchat/intake-agent/pkg/logging"
)

// Registry manages the set of live conversation sessions. Two views track
// overlapping membership: the backing store of all sessions and the active
// subset. One mutex guards both so inserts and removals hit the two views as
// a single step, which is what makes the self-healing invariant in
// EnsureActive sound: any id present in the backing store is recoverable as
// active.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*ConversationSession
	active   map[string]struct{}
	logger   *logging.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		sessions: make(map[string]*ConversationSession),
		active:   make(map[string]struct{}),
		logger:   logger,
	}
}

// Create registers a new session under a fresh opaque id and returns it.
func (r *Registry) Create() *ConversationSession {
	session := newConversationSession(uuid.NewString())

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.active[session.ID] = struct{}{}
	r.mu.Unlock()

	r.logger.Info("created session", "session_id", session.ID)
	return session
}

// Lookup returns the session for id. Lookups are the repair mechanism: a
// session found in the backing store but missing from the active index is
// re-activated rather than treated as expired.
func (r *Registry) Lookup(id string) (*ConversationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if _, isActive := r.active[id]; !isActive {
		r.logger.Info("recovering session missing from active index", "session_id", id)
		r.active[id] = struct{}{}
	}
	return session, true
}

// EnsureActive re-indexes a session that exists in the backing store but was
// dropped from the active set. Returns false only when the id is unknown.
func (r *Registry) EnsureActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, isActive := r.active[id]; isActive {
		return true
	}
	if _, exists := r.sessions[id]; exists {
		r.logger.Info("recovering session", "session_id", id)
		r.active[id] = struct{}{}
		return true
	}
	return false
}

// MarkInactive drops a session from the active index, typically on
// completion. The session stays in the backing store for summary lookups.
func (r *Registry) MarkInactive(id string) {
	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()
}

// Remove deletes a session from both views.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	delete(r.active, id)
	r.mu.Unlock()
	r.logger.Info("removed session", "session_id", id)
}

// CleanupExpired removes sessions idle for longer than maxAge from both
// views and reports how many were dropped.
func (r *Registry) CleanupExpired(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		if session.LastActivity().Before(cutoff) {
			delete(r.sessions, id)
			delete(r.active, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("cleaned up expired sessions", "count", removed)
	}
	return removed
}

// Counts reports backing-store and active-index sizes for debug endpoints.
func (r *Registry) Counts() (total, active int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), len(r.active)
}

// IsActive reports whether id currently appears in the active index. It does
// not repair; use Lookup or EnsureActive for that.
func (r *Registry) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}
