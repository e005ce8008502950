package session

import (
	"sync"

	"location-relay/internal/location"
)

// Registry holds every session seen since process start. Sessions are never
// removed. All methods return copies.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: map[string]*Session{},
	}
}

// GetOrCreate returns the session for sessionID, creating an active one
// owned by userID if it does not exist. The owner of an existing session is
// never changed.
func (r *Registry) GetOrCreate(userID, sessionID string, now int64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, created := r.getOrCreateLocked(userID, sessionID, now)
	return *s, created
}

// RecordLocation bumps the session's count and caches sample as its latest
// fix, creating the session first if needed.
func (r *Registry) RecordLocation(userID, sessionID string, sample location.Sample, now int64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, created := r.getOrCreateLocked(userID, sessionID, now)
	s.LocationCount++
	last := sample
	s.LastLocation = &last
	return *s, created
}

// MarkStopped deactivates an active session and stamps its end time. It is
// a no-op on a session that is already inactive. found is false for unknown
// ids.
func (r *Registry) MarkStopped(sessionID string, now int64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	if s.IsActive {
		s.IsActive = false
		s.EndTime = now
	}
	return *s, true
}

func (r *Registry) Get(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// List returns all sessions in creation order.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}

func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.sessions {
		if s.IsActive {
			n++
		}
	}
	return n
}

func (r *Registry) getOrCreateLocked(userID, sessionID string, now int64) (*Session, bool) {
	if s, ok := r.sessions[sessionID]; ok {
		return s, false
	}
	s := &Session{
		UserID:    userID,
		SessionID: sessionID,
		StartTime: now,
		IsActive:  true,
	}
	r.sessions[sessionID] = s
	r.order = append(r.order, sessionID)
	return s, true
}
