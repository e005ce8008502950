package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"location-relay/internal/location"
)

const (
	EventTrackingStart    = "tracking:start"
	EventTrackingStarted  = "tracking:started"
	EventLocationUpdate   = "location:update"
	EventLocationReceived = "location:received"
	EventTrackingStop     = "tracking:stop"
	EventTrackingStopped  = "tracking:stopped"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// Envelope is the frame exchanged over a connection in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data as the envelope's payload. A json.RawMessage is
// carried through unchanged.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, ok := data.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to encode %s: %w", event, err)
		}
		raw = b
	}
	return Envelope{Event: event, Data: raw}, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformedMessage)
	}
	return env, nil
}

// Inbound payloads.

type StartRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

type LocationUpdate struct {
	UserID    string            `json:"userId"`
	SessionID string            `json:"sessionId"`
	Location  *location.Payload `json:"location" validate:"required"`
}

type StopRequest struct {
	SessionID string `json:"sessionId"`
}

// Outbound payloads.

type StartAck struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	StartTime int64  `json:"startTime"`
}

type StartedNotice struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

type LocationAck struct {
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

type StopAck struct {
	SessionID      string `json:"sessionId"`
	EndTime        int64  `json:"endTime"`
	TotalLocations int    `json:"totalLocations"`
}

type StoppedNotice struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// Outcome is what dispatching one inbound event produced: an optional reply
// to the sender and an optional broadcast to every other peer.
type Outcome struct {
	SessionID string
	Reply     *Envelope
	Broadcast *Envelope
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrInvalidPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	return nil
}
