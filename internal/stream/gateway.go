package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"location-relay/internal/metrics"
	"location-relay/internal/relay"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gateway binds websocket connections to the relay service. Dispatching an
// inbound event and queueing its reply and broadcast happen under one lock,
// so peers see broadcasts in dispatch order.
type Gateway struct {
	mu       sync.Mutex
	svc      *relay.Service
	hub      *Hub
	pongWait time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewGateway builds a gateway. A peer that sends nothing, not even a pong,
// for pongWait is disconnected; zero selects defaultPongWait.
func NewGateway(svc *relay.Service, hub *Hub, pongWait time.Duration, log *zap.Logger, m *metrics.Metrics) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return &Gateway{
		svc:      svc,
		hub:      hub,
		pongWait: pongWait,
		log:      log,
		metrics:  m,
	}
}

// pingPeriod must stay below pongWait so a live peer always answers in time.
func (g *Gateway) pingPeriod() time.Duration {
	return g.pongWait * 9 / 10
}

// Open registers a new connection under a fresh id.
func (g *Gateway) Open(userID, sessionID string) *Client {
	client := g.hub.Register(uuid.NewString())
	g.svc.Connect(client.ID, userID, sessionID)
	g.metrics.ConnectionOpened()
	return client
}

// Close runs disconnect cleanup and releases the client's send channel.
func (g *Gateway) Close(client *Client, reason string) {
	g.svc.Disconnect(client.ID, reason)
	g.hub.Unregister(client)
	g.metrics.ConnectionClosed()
}

// Dispatch applies one inbound frame. Frames that fail to decode or
// validate are dropped; the connection stays open.
func (g *Gateway) Dispatch(connectionID string, frame []byte) {
	g.mu.Lock()
	out, err := g.svc.Handle(connectionID, frame)
	if err != nil {
		g.mu.Unlock()
		g.metrics.Dropped(dropReason(err))
		g.log.Debug("inbound frame dropped", zap.String("connection_id", connectionID), zap.Error(err))
		return
	}

	var broadcast []byte
	if out.Reply != nil {
		g.Emit(connectionID, *out.Reply)
	}
	if out.Broadcast != nil {
		broadcast = g.Publish(*out.Broadcast, connectionID)
	}
	g.mu.Unlock()

	if broadcast != nil {
		g.hub.Mirror(context.Background(), out.SessionID, broadcast)
	}
}

// Emit sends env to a single connection.
func (g *Gateway) Emit(connectionID string, env relay.Envelope) {
	frame, err := env.Marshal()
	if err != nil {
		g.log.Error("failed to encode reply", zap.String("event", env.Event), zap.Error(err))
		return
	}
	g.hub.Send(connectionID, frame)
}

// Publish sends env to every connection except excludeID and returns the
// encoded frame.
func (g *Gateway) Publish(env relay.Envelope, excludeID string) []byte {
	frame, err := env.Marshal()
	if err != nil {
		g.log.Error("failed to encode broadcast", zap.String("event", env.Event), zap.Error(err))
		return nil
	}
	g.hub.Publish(frame, excludeID)
	return frame
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, relay.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, relay.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, relay.ErrInvalidPayload):
		return "invalid_payload"
	}
	return "error"
}
