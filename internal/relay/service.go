package relay

import (
	"fmt"
	"sync"
	"time"

	"location-relay/internal/clients"
	"location-relay/internal/history"
	"location-relay/internal/location"
	"location-relay/internal/metrics"
	"location-relay/internal/session"

	"go.uber.org/zap"
)

const DefaultUserID = "unknown"

// Service owns the session, history and client registries. Composite
// operations run under mu so a session's count always matches its history
// length as seen by readers.
type Service struct {
	mu       sync.RWMutex
	sessions *session.Registry
	history  *history.Store
	clients  *clients.Registry
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sessions: session.NewRegistry(),
		history:  history.NewStore(),
		clients:  clients.NewRegistry(),
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// Connect registers a new connection. Empty identifiers get their defaults.
func (s *Service) Connect(connectionID, userID, sessionID string) clients.Client {
	if userID == "" {
		userID = DefaultUserID
	}
	c := clients.Client{
		ConnectionID: connectionID,
		UserID:       userID,
		SessionID:    sessionID,
		ConnectedAt:  s.nowMillis(),
	}

	s.mu.Lock()
	s.clients.Connect(c)
	s.mu.Unlock()

	s.log.Info("client connected",
		zap.String("connection_id", connectionID),
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
	)
	return c
}

// Disconnect removes the connection and marks its session inactive if it is
// still active.
func (s *Service) Disconnect(connectionID, reason string) (clients.Client, bool) {
	s.mu.Lock()
	c, ok := s.clients.Disconnect(connectionID)
	var (
		sess    session.Session
		stopped bool
	)
	if ok && c.SessionID != "" {
		before, known := s.sessions.Get(c.SessionID)
		if known && before.IsActive {
			sess, _ = s.sessions.MarkStopped(c.SessionID, s.nowMillis())
			stopped = true
		}
	}
	s.mu.Unlock()

	s.log.Info("client disconnected",
		zap.String("connection_id", connectionID),
		zap.String("reason", reason),
	)
	if stopped {
		s.log.Info("session marked inactive due to disconnect",
			zap.String("session_id", sess.SessionID),
			zap.Int("total_locations", sess.LocationCount),
		)
	}
	return c, ok
}

// Handle decodes one inbound frame from connectionID and applies it.
func (s *Service) Handle(connectionID string, frame []byte) (Outcome, error) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		return Outcome{}, err
	}

	switch env.Event {
	case EventTrackingStart:
		var req StartRequest
		if err := decodeData(env, &req); err != nil {
			return Outcome{}, err
		}
		return s.StartTracking(connectionID, req)

	case EventLocationUpdate:
		var upd LocationUpdate
		if err := decodeData(env, &upd); err != nil {
			return Outcome{}, err
		}
		return s.UpdateLocation(connectionID, upd, env.Data)

	case EventTrackingStop:
		var req StopRequest
		if err := decodeData(env, &req); err != nil {
			return Outcome{}, err
		}
		return s.StopTracking(connectionID, req)
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

// resolve fills a missing user or session id from the connection's entry.
func (s *Service) resolve(connectionID, userID, sessionID string) (string, string) {
	if userID != "" && sessionID != "" {
		return userID, sessionID
	}
	c, ok := s.clients.Get(connectionID)
	if userID == "" {
		userID = DefaultUserID
		if ok {
			userID = c.UserID
		}
	}
	if sessionID == "" && ok {
		sessionID = c.SessionID
	}
	return userID, sessionID
}

func (s *Service) StartTracking(connectionID string, req StartRequest) (Outcome, error) {
	s.mu.Lock()
	userID, sessionID := s.resolve(connectionID, req.UserID, req.SessionID)
	if sessionID == "" {
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: %s without sessionId", ErrInvalidPayload, EventTrackingStart)
	}
	sess, created := s.sessions.GetOrCreate(userID, sessionID, s.nowMillis())
	if created {
		s.history.Ensure(sessionID)
	}
	s.clients.Reassign(connectionID, sessionID)
	s.mu.Unlock()

	s.metrics.Event(EventTrackingStart)
	s.log.Info("tracking started",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Bool("created", created),
	)

	reply, err := NewEnvelope(EventTrackingStart, StartAck{
		SessionID: sessionID,
		UserID:    userID,
		StartTime: sess.StartTime,
	})
	if err != nil {
		return Outcome{}, err
	}
	notice, err := NewEnvelope(EventTrackingStarted, StartedNotice{
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{SessionID: sessionID, Reply: &reply, Broadcast: &notice}, nil
}

// UpdateLocation appends the sample and relays raw, the update exactly as
// received, to other peers.
func (s *Service) UpdateLocation(connectionID string, upd LocationUpdate, raw []byte) (Outcome, error) {
	if err := location.Validate(upd); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, EventLocationUpdate, err)
	}
	sample := upd.Location.Sample()

	s.mu.Lock()
	userID, sessionID := s.resolve(connectionID, upd.UserID, upd.SessionID)
	if sessionID == "" {
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: %s without sessionId", ErrInvalidPayload, EventLocationUpdate)
	}
	sess, _ := s.sessions.RecordLocation(userID, sessionID, sample, s.nowMillis())
	s.history.Append(sessionID, sample)
	s.mu.Unlock()

	s.metrics.Event(EventLocationUpdate)
	s.metrics.SampleStored()
	s.logLocation(userID, sess, sample)

	reply, err := NewEnvelope(EventLocationReceived, LocationAck{
		SessionID: sessionID,
		Timestamp: s.nowMillis(),
	})
	if err != nil {
		return Outcome{}, err
	}
	relayed := Envelope{Event: EventLocationUpdate, Data: append([]byte(nil), raw...)}
	return Outcome{SessionID: sessionID, Reply: &reply, Broadcast: &relayed}, nil
}

// StopTracking marks the session inactive. An unknown session produces an
// empty outcome: no reply and no broadcast.
func (s *Service) StopTracking(connectionID string, req StopRequest) (Outcome, error) {
	s.mu.Lock()
	_, sessionID := s.resolve(connectionID, DefaultUserID, req.SessionID)
	sess, found := s.sessions.MarkStopped(sessionID, s.nowMillis())
	s.mu.Unlock()

	if !found {
		s.log.Debug("stop for unknown session ignored", zap.String("session_id", sessionID))
		return Outcome{}, nil
	}

	s.metrics.Event(EventTrackingStop)
	s.log.Info("tracking stopped",
		zap.String("session_id", sessionID),
		zap.Duration("duration", time.Duration(sess.EndTime-sess.StartTime)*time.Millisecond),
		zap.Int("total_locations", sess.LocationCount),
	)

	reply, err := NewEnvelope(EventTrackingStop, StopAck{
		SessionID:      sessionID,
		EndTime:        sess.EndTime,
		TotalLocations: sess.LocationCount,
	})
	if err != nil {
		return Outcome{}, err
	}
	notice, err := NewEnvelope(EventTrackingStopped, StoppedNotice{
		UserID:    sess.UserID,
		SessionID: sessionID,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{SessionID: sessionID, Reply: &reply, Broadcast: &notice}, nil
}

func (s *Service) logLocation(userID string, sess session.Session, sample location.Sample) {
	if ce := s.log.Check(zap.DebugLevel, "location update"); ce != nil {
		fields := []zap.Field{
			zap.String("user_id", userID),
			zap.String("session_id", sess.SessionID),
			zap.Float64("lat", sample.Latitude),
			zap.Float64("lng", sample.Longitude),
			zap.Int("total_updates", sess.LocationCount),
		}
		if sample.Accuracy != nil {
			fields = append(fields, zap.Float64("accuracy_m", *sample.Accuracy))
		}
		if sample.Speed != nil {
			fields = append(fields, zap.Float64("speed_kmh", *sample.Speed*3.6))
		}
		ce.Write(fields...)
	}
}
