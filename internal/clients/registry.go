package clients

import (
	"sort"
	"sync"
)

// Client is one live connection and the user/session it speaks for.
type Client struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	SessionID    string `json:"sessionId"`
	ConnectedAt  int64  `json:"connectedAt"`
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: map[string]Client{},
	}
}

func (r *Registry) Connect(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ConnectionID] = c
}

// Reassign points an existing connection at a different session. It reports
// false if the connection is unknown.
func (r *Registry) Reassign(connectionID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connectionID]
	if !ok {
		return false
	}
	c.SessionID = sessionID
	r.clients[connectionID] = c
	return true
}

// Disconnect removes the connection and returns its last entry.
func (r *Registry) Disconnect(connectionID string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connectionID]
	if ok {
		delete(r.clients, connectionID)
	}
	return c, ok
}

func (r *Registry) Get(connectionID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[connectionID]
	return c, ok
}

// List returns connections ordered by connect time.
func (r *Registry) List() []Client {
	r.mu.RLock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt != out[j].ConnectedAt {
			return out[i].ConnectedAt < out[j].ConnectedAt
		}
		return out[i].ConnectionID < out[j].ConnectionID
	})
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
