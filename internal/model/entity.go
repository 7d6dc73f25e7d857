package model

import "time"

// SessionRecord is the archived summary of a finished (or still running)
// live session (GORM).
type SessionRecord struct {
	ID         string     `gorm:"type:uuid;primaryKey"`
	ActivityID string     `gorm:"size:64;not null;index"`
	OwnerID    string     `gorm:"size:64;not null;index"`
	SportType  string     `gorm:"size:32;not null"`
	StartedAt  time.Time  `gorm:"not null"`
	EndedAt    *time.Time `gorm:"column:ended_at"`
	PointCount int        `gorm:"not null;default:0"`
}

func (SessionRecord) TableName() string { return "live_session_records" }

// PointRecord is one archived GPS sample (GORM).
type PointRecord struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	ActivityID      string    `gorm:"size:64;not null;index"`
	Latitude        float64   `gorm:"not null"`
	Longitude       float64   `gorm:"not null"`
	ElevationMeters *float64  `gorm:"column:elevation_meters"`
	SpeedMPS        *float64  `gorm:"column:speed_mps"`
	HeartRate       *int      `gorm:"column:heart_rate"`
	RecordedAt      time.Time `gorm:"not null;index"`
}

func (PointRecord) TableName() string { return "live_track_points" }
