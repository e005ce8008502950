package stream

import (
	"context"
	"sync"
	"time"

	"location-relay/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const mirrorTimeout = 2 * time.Second

// Hub tracks live connections and fans frames out to them. Sends never
// block: a peer whose buffer is full misses that frame.
type Hub struct {
	redis   *redis.Client
	clients map[string]*Client
	mu      sync.RWMutex
	buffer  int
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Client struct {
	ID   string
	Send chan []byte
}

func NewHub(redisClient *redis.Client, buffer int, log *zap.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		redis:   redisClient,
		clients: map[string]*Client{},
		buffer:  buffer,
		log:     log,
		metrics: m,
	}
}

func (h *Hub) Register(id string) *Client {
	client := &Client{
		ID:   id,
		Send: make(chan []byte, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = client
	return client
}

// Unregister removes the client and closes its Send channel. Calling it
// twice is safe.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.ID]; ok && current == client {
		delete(h.clients, client.ID)
		close(client.Send)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues frame for one connection.
func (h *Hub) Send(id string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[id]
	if !ok {
		return false
	}
	return h.offer(client, frame)
}

// Publish queues frame for every connection except excludeID and returns
// how many peers accepted it.
func (h *Hub) Publish(frame []byte, excludeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, client := range h.clients {
		if id == excludeID {
			continue
		}
		if h.offer(client, frame) {
			delivered++
		}
	}
	return delivered
}

// Mirror publishes frame on the session's Redis channel when a Redis client
// is configured. Errors are logged and otherwise ignored.
func (h *Hub) Mirror(ctx context.Context, sessionID string, frame []byte) {
	if h.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	if err := h.redis.Publish(ctx, redisChannel(sessionID), frame).Err(); err != nil {
		h.metrics.MirrorError()
		h.log.Warn("redis mirror publish failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// offer must be called with mu held so Unregister cannot close Send
// concurrently.
func (h *Hub) offer(client *Client, frame []byte) bool {
	select {
	case client.Send <- frame:
		return true
	default:
		h.metrics.PeerDrop()
		h.log.Debug("send buffer full, frame dropped", zap.String("connection_id", client.ID))
		return false
	}
}

func redisChannel(sessionID string) string {
	return "tracking:" + sessionID + ":events"
}
