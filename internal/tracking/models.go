package tracking

import (
	"location-relay/internal/clients"
	"location-relay/internal/relay"
)

const (
	defaultLimit  = 100
	defaultOffset = 0
)

type SessionsResponse struct {
	Total    int                     `json:"total"`
	Active   int                     `json:"active"`
	Sessions []relay.SessionListItem `json:"sessions"`
}

type ClientsResponse struct {
	Total   int              `json:"total"`
	Clients []clients.Client `json:"clients"`
}
