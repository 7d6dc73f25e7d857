package model

import "time"

// EventType identifies an outbound websocket event.
type EventType string

const (
	EventSessionInfo    EventType = "session_info"
	EventLocationUpdate EventType = "location_update"
	EventViewerJoined   EventType = "viewer_joined"
	EventViewerLeft     EventType = "viewer_left"
	EventSessionEnded   EventType = "session_ended"
	EventPong           EventType = "pong"

	// Inbound keep-alive from viewers.
	EventPing EventType = "ping"
)

// Event is the envelope for every message sent over the realtime channel.
// Only the fields relevant to the event type are populated.
type Event struct {
	Type        EventType   `json:"type"`
	ActivityID  string      `json:"activity_id,omitempty"`
	OwnerName   string      `json:"owner_name,omitempty"`
	SportType   string      `json:"sport_type,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	Point       *TrackPoint `json:"point,omitempty"`
	LastPoint   *TrackPoint `json:"last_point,omitempty"`
	ViewerCount *int        `json:"viewer_count,omitempty"`
	Timestamp   *time.Time  `json:"timestamp,omitempty"`
}

// InboundMessage is what viewers may send on the realtime channel.
type InboundMessage struct {
	Type EventType `json:"type"`
}

// Websocket close codes for the realtime channel, distinguishing why a
// connection was refused or torn down.
const (
	CloseInvalidToken    = 4001
	CloseAccessDenied    = 4003
	CloseSessionNotFound = 4004
	CloseSessionGone     = 4005
)
