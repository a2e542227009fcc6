package syncserver

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is the keyed mapping from client identifier to session state.
// xsync.MapOf gives lock-free concurrent reads and per-key writes, so a
// lookup or update for one client never blocks a Range snapshotting every
// other client during fan-out.
type Registry struct {
	sessions *xsync.MapOf[string, *Session]
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: xsync.NewMapOf[string, *Session]()}
}

// Get returns the session for clientID, if connected.
func (r *Registry) Get(clientID string) (*Session, bool) {
	return r.sessions.Load(clientID)
}

// Put registers a session, replacing any existing one for the same client.
func (r *Registry) Put(s *Session) {
	r.sessions.Store(s.ClientID, s)
}

// Delete removes a session on disconnect.
func (r *Registry) Delete(clientID string) {
	r.sessions.Delete(clientID)
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// RangeOthers calls fn for every session except the one identified by
// excludeClientID, without holding any single lock across the whole scan.
func (r *Registry) RangeOthers(excludeClientID string, fn func(s *Session) bool) {
	r.sessions.Range(func(clientID string, s *Session) bool {
		if clientID == excludeClientID {
			return true
		}
		return fn(s)
	})
}

// Snapshot returns every currently connected session. Used by diagnostics,
// never by the sync hot path.
func (r *Registry) Snapshot() []*Session {
	sessions := make([]*Session, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s *Session) bool {
		sessions = append(sessions, s)
		return true
	})
	return sessions
}
