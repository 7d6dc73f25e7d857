package model

import "time"

// Visibility controls who may watch a live session.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityRestricted Visibility = "restricted"
)

// TrackPoint is one GPS sample pushed by the tracking device.
type TrackPoint struct {
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	ElevationMeters *float64  `json:"elevation_meters,omitempty"`
	SpeedMPS        *float64  `json:"speed_mps,omitempty"`
	HeartRate       *int      `json:"heart_rate,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// LiveSession is the in-memory state of one in-progress, currently
// streaming activity recording. All fields except LastPoint are immutable
// after creation; LastPoint is guarded by the registry entry lock.
type LiveSession struct {
	ActivityID     string
	OwnerID        string
	OwnerName      string
	SportType      string
	StartedAt      time.Time
	Visibility     Visibility
	AllowedViewers map[string]struct{}
	LastPoint      *TrackPoint
}

// IsPublic reports whether any authenticated user may view the session.
func (s *LiveSession) IsPublic() bool {
	return s.Visibility == VisibilityPublic
}

// StartSessionRequest is the body for POST /live/sessions.
type StartSessionRequest struct {
	ActivityID     string   `json:"activity_id" binding:"required"`
	SportType      string   `json:"sport_type" binding:"required"`
	IsPublic       bool     `json:"is_public"`
	AllowedViewers []string `json:"allowed_viewers"`
}

// LocationUpdateRequest is the body for POST /live/sessions/:activity_id/location.
// Bounds follow the tracking device contract.
type LocationUpdateRequest struct {
	Latitude        float64    `json:"latitude" binding:"min=-90,max=90"`
	Longitude       float64    `json:"longitude" binding:"min=-180,max=180"`
	ElevationMeters *float64   `json:"elevation_meters"`
	SpeedMPS        *float64   `json:"speed_mps" binding:"omitempty,min=0"`
	HeartRate       *int       `json:"heart_rate" binding:"omitempty,min=30,max=250"`
	Timestamp       *time.Time `json:"timestamp"`
}

// Point converts the request into a TrackPoint, stamping the server time
// when the device did not supply one.
func (r *LocationUpdateRequest) Point(now time.Time) TrackPoint {
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return TrackPoint{
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		ElevationMeters: r.ElevationMeters,
		SpeedMPS:        r.SpeedMPS,
		HeartRate:       r.HeartRate,
		Timestamp:       ts,
	}
}

// SessionResponse is the API view of a live session.
type SessionResponse struct {
	ActivityID  string      `json:"activity_id"`
	OwnerID     string      `json:"owner_id"`
	OwnerName   string      `json:"owner_name"`
	SportType   string      `json:"sport_type"`
	StartedAt   time.Time   `json:"started_at"`
	IsPublic    bool        `json:"is_public"`
	ViewerCount int         `json:"viewer_count"`
	LastPoint   *TrackPoint `json:"last_point,omitempty"`
}

// SessionListResponse is the response for GET /live/sessions.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// PushLocationResponse reports how many viewers a location update reached.
// Best-effort delivery: the count is a weak audience signal, not a guarantee.
type PushLocationResponse struct {
	BroadcastTo int `json:"broadcast_to"`
}
