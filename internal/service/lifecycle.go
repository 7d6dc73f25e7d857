package service

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

// Lifecycle starts and ends live sessions, enforcing one active session
// per activity and owner-only termination.
type Lifecycle struct {
	registry          *Registry
	hub               *Hub
	maxAllowedViewers int
	log               *zap.Logger
}

// NewLifecycle creates the session lifecycle manager.
func NewLifecycle(registry *Registry, hub *Hub, maxAllowedViewers int, log *zap.Logger) *Lifecycle {
	return &Lifecycle{
		registry:          registry,
		hub:               hub,
		maxAllowedViewers: maxAllowedViewers,
		log:               log,
	}
}

// Start creates a live session for an activity. A session already active
// for the same activity is a conflict. The owner is never stored in the
// allowed viewer set; owner access is always derived.
func (l *Lifecycle) Start(activityID, ownerID, ownerName, sportType string, isPublic bool, allowedViewers []string) (*model.LiveSession, error) {
	if len(allowedViewers) > l.maxAllowedViewers {
		return nil, errs.ErrTooManyAllowedViewers
	}
	visibility := model.VisibilityRestricted
	if isPublic {
		visibility = model.VisibilityPublic
	}
	allowed := make(map[string]struct{}, len(allowedViewers))
	for _, v := range allowedViewers {
		if v != "" && v != ownerID {
			allowed[v] = struct{}{}
		}
	}
	sess := &model.LiveSession{
		ActivityID:     activityID,
		OwnerID:        ownerID,
		OwnerName:      ownerName,
		SportType:      sportType,
		StartedAt:      time.Now().UTC(),
		Visibility:     visibility,
		AllowedViewers: allowed,
	}
	if err := l.registry.Create(sess); err != nil {
		return nil, err
	}
	if l.hub.archiver != nil {
		l.hub.archiver.SessionStarted(l.hub.archiveCtx(), sess)
	}
	l.log.Info("live session started",
		zap.String("activity_id", activityID),
		zap.String("owner_id", ownerID),
		zap.String("sport_type", sportType),
		zap.String("visibility", string(visibility)))
	return sess, nil
}

// End terminates a session. Only the owner may end it. Viewers are told
// the stream stopped before their channel disappears: the session_ended
// event is broadcast first, then the session and its connection set are
// removed atomically, then every transport is closed best-effort. A
// broken transport never blocks the removal.
func (l *Lifecycle) End(activityID, requesterID string) error {
	sess, err := l.registry.Get(activityID)
	if err != nil {
		return err
	}
	if sess.OwnerID != requesterID {
		return errs.ErrForbidden
	}

	now := time.Now().UTC()
	ended := model.Event{
		Type:       model.EventSessionEnded,
		ActivityID: activityID,
		Timestamp:  &now,
	}
	l.hub.Broadcast(activityID, ended, nil)

	conns, err := l.registry.Remove(activityID)
	if err != nil {
		// Lost a race with a concurrent End; the session is gone either way.
		return errs.ErrSessionNotFound
	}
	for _, c := range conns {
		if err := c.EnqueueClose(websocket.CloseNormalClosure, "session ended"); err != nil {
			c.Close()
		}
	}

	if l.hub.archiver != nil {
		l.hub.archiver.SessionEnded(l.hub.archiveCtx(), activityID, now)
	}
	l.log.Info("live session ended",
		zap.String("activity_id", activityID),
		zap.Int("viewers_disconnected", len(conns)))
	return nil
}

// Get returns a point-in-time view of a session, subject to visibility.
func (l *Lifecycle) Get(activityID, viewerID string) (SessionState, error) {
	state, err := l.registry.State(activityID)
	if err != nil {
		return SessionState{}, err
	}
	if !CanView(&state.Session, viewerID) {
		return SessionState{}, errs.ErrForbidden
	}
	return state, nil
}

// ListVisible returns every active session the viewer may watch.
func (l *Lifecycle) ListVisible(viewerID string) []SessionState {
	return l.registry.States(func(s *model.LiveSession) bool {
		return CanView(s, viewerID)
	})
}
