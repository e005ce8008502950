package history

import (
	"sync"

	"location-relay/internal/location"
)

// Store keeps an append-only sequence of samples per session, in arrival
// order.
type Store struct {
	mu      sync.RWMutex
	samples map[string][]location.Sample
}

func NewStore() *Store {
	return &Store{
		samples: map[string][]location.Sample{},
	}
}

// Ensure registers an empty history for sessionID if none exists.
func (s *Store) Ensure(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.samples[sessionID]; !ok {
		s.samples[sessionID] = []location.Sample{}
	}
}

// Append adds sample at the tail and returns the new length. Samples are
// not reordered by timestamp.
func (s *Store) Append(sessionID string, sample location.Sample) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[sessionID] = append(s.samples[sessionID], sample)
	return len(s.samples[sessionID])
}

// Slice returns up to limit samples starting at offset. ok is false when
// the session has no history at all; a known session past its end yields an
// empty slice.
func (s *Store) Slice(sessionID string, offset, limit int) ([]location.Sample, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, ok := s.samples[sessionID]
	if !ok {
		return nil, 0, false
	}

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= total {
		return []location.Sample{}, total, true
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]location.Sample, end-offset)
	copy(out, all[offset:end])
	return out, total, true
}

func (s *Store) All(sessionID string) ([]location.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, ok := s.samples[sessionID]
	if !ok {
		return nil, false
	}
	out := make([]location.Sample, len(all))
	copy(out, all)
	return out, true
}

func (s *Store) Len(sessionID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, ok := s.samples[sessionID]
	return len(all), ok
}
