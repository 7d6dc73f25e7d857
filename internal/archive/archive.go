// Package archive persists the location stream of live sessions so
// finished recordings survive the process. It is a best-effort
// collaborator: write failures are logged and never reach the
// broadcasting device.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

// Store implements service.PointArchiver on PostgreSQL via GORM.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStore creates an archive store over an open database handle.
func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// SessionStarted records the start of a live session.
func (s *Store) SessionStarted(ctx context.Context, sess *model.LiveSession) {
	rec := &model.SessionRecord{
		ID:         uuid.New().String(),
		ActivityID: sess.ActivityID,
		OwnerID:    sess.OwnerID,
		SportType:  sess.SportType,
		StartedAt:  sess.StartedAt,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		s.log.Warn("archive: session start not recorded",
			zap.String("activity_id", sess.ActivityID), zap.Error(err))
	}
}

// SavePoint stores one GPS sample.
func (s *Store) SavePoint(ctx context.Context, activityID string, p model.TrackPoint) {
	rec := &model.PointRecord{
		ID:              uuid.New().String(),
		ActivityID:      activityID,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		ElevationMeters: p.ElevationMeters,
		SpeedMPS:        p.SpeedMPS,
		HeartRate:       p.HeartRate,
		RecordedAt:      p.Timestamp,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return tx.Model(&model.SessionRecord{}).
			Where("activity_id = ? AND ended_at IS NULL", activityID).
			UpdateColumn("point_count", gorm.Expr("point_count + 1")).Error
	})
	if err != nil {
		s.log.Warn("archive: point not recorded",
			zap.String("activity_id", activityID), zap.Error(err))
	}
}

// SessionEnded marks the session record finished.
func (s *Store) SessionEnded(ctx context.Context, activityID string, endedAt time.Time) {
	err := s.db.WithContext(ctx).Model(&model.SessionRecord{}).
		Where("activity_id = ? AND ended_at IS NULL", activityID).
		Update("ended_at", endedAt).Error
	if err != nil {
		s.log.Warn("archive: session end not recorded",
			zap.String("activity_id", activityID), zap.Error(err))
	}
}
