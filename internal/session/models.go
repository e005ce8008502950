package session

import "location-relay/internal/location"

// Session is a snapshot of one tracking run. Times are milliseconds since
// the epoch; EndTime is zero until the session is stopped.
type Session struct {
	UserID        string           `json:"userId"`
	SessionID     string           `json:"sessionId"`
	StartTime     int64            `json:"startTime"`
	EndTime       int64            `json:"endTime,omitempty"`
	IsActive      bool             `json:"isActive"`
	LocationCount int              `json:"locationCount"`
	LastLocation  *location.Sample `json:"lastLocation,omitempty"`
}
