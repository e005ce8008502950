package relay

import (
	"time"

	"location-relay/internal/clients"
	"location-relay/internal/location"
	"location-relay/internal/session"
	"location-relay/internal/shared/geo"
)

type Health struct {
	ActiveConnections int
	ActiveSessions    int
}

// SessionListItem is a session annotated with its history length.
type SessionListItem struct {
	session.Session
	LocationHistory int `json:"locationHistory"`
}

// SessionDetail is a session with its full history.
type SessionDetail struct {
	session.Session
	LocationHistory []location.Sample `json:"locationHistory"`
}

type LocationPage struct {
	SessionID string            `json:"sessionId"`
	Total     int               `json:"total"`
	Locations []location.Sample `json:"locations"`
}

type Summary struct {
	SessionID       string  `json:"sessionId"`
	IsActive        bool    `json:"isActive"`
	PointCount      int     `json:"pointCount"`
	DistanceM       float64 `json:"distanceM"`
	DurationSec     int64   `json:"durationSec"`
	AverageSpeedMps float64 `json:"averageSpeedMps"`
}

func (s *Service) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Health{
		ActiveConnections: s.clients.Count(),
		ActiveSessions:    s.sessions.CountActive(),
	}
}

// Sessions returns every session with its history length, plus the active
// count taken from the same snapshot.
func (s *Service) Sessions() ([]SessionListItem, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessions.List()
	items := make([]SessionListItem, 0, len(all))
	active := 0
	for _, sess := range all {
		n, _ := s.history.Len(sess.SessionID)
		items = append(items, SessionListItem{Session: sess, LocationHistory: n})
		if sess.IsActive {
			active++
		}
	}
	return items, active
}

func (s *Service) Session(sessionID string) (SessionDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return SessionDetail{}, false
	}
	samples, ok := s.history.All(sessionID)
	if !ok {
		samples = []location.Sample{}
	}
	return SessionDetail{Session: sess, LocationHistory: samples}, true
}

// Locations pages through a session's history. ok is false for a session
// with no history entry.
func (s *Service) Locations(sessionID string, offset, limit int) (LocationPage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples, total, ok := s.history.Slice(sessionID, offset, limit)
	if !ok {
		return LocationPage{}, false
	}
	return LocationPage{SessionID: sessionID, Total: total, Locations: samples}, true
}

// Summary computes path length and pace over the stored history. Duration
// runs to the end time, or to now while the session is active.
func (s *Service) Summary(sessionID string) (Summary, bool) {
	s.mu.RLock()
	sess, ok := s.sessions.Get(sessionID)
	samples, _ := s.history.All(sessionID)
	s.mu.RUnlock()
	if !ok {
		return Summary{}, false
	}

	distanceM := 0.0
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		distanceM += geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude) * 1000
	}

	end := sess.EndTime
	if end == 0 {
		end = s.nowMillis()
	}
	duration := time.Duration(end-sess.StartTime) * time.Millisecond
	avgSpeed := 0.0
	if duration.Seconds() > 0 {
		avgSpeed = distanceM / duration.Seconds()
	}

	return Summary{
		SessionID:       sessionID,
		IsActive:        sess.IsActive,
		PointCount:      len(samples),
		DistanceM:       distanceM,
		DurationSec:     int64(duration.Seconds()),
		AverageSpeedMps: avgSpeed,
	}, true
}

func (s *Service) Clients() []clients.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients.List()
}
