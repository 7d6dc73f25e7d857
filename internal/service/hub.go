package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/metrics"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

// PointArchiver receives a copy of the location stream for durable
// storage (optional). Archive failures are the archiver's problem: they
// are logged there and never reach the broadcaster.
type PointArchiver interface {
	SessionStarted(ctx context.Context, sess *model.LiveSession)
	SavePoint(ctx context.Context, activityID string, p model.TrackPoint)
	SessionEnded(ctx context.Context, activityID string, endedAt time.Time)
}

// Hub is the broadcast engine: it fans structured events out to every
// connection registered for a session, evicting connections that fail.
type Hub struct {
	registry *Registry
	log      *zap.Logger
	archiver PointArchiver   // optional: copy of location stream to the archive store
	ctx      context.Context // app context for archiving (shutdown propagation)
}

// NewHub creates a broadcast engine over the given registry.
func NewHub(registry *Registry, log *zap.Logger) *Hub {
	return &Hub{registry: registry, log: log}
}

// SetArchiver sets the optional archiver for copying the location stream.
func (h *Hub) SetArchiver(a PointArchiver) { h.archiver = a }

// SetContext sets the app context used for archiving calls.
func (h *Hub) SetContext(ctx context.Context) { h.ctx = ctx }

// Attach registers a viewer connection with its session, sends the
// joiner a session_info snapshot (metadata, last known point, current
// viewer count), and tells every other connection about the new viewer.
// The whole step is atomic with respect to broadcasts and removal.
func (h *Hub) Attach(conn *Conn) error {
	e, ok := h.registry.entryFor(conn.ActivityID)
	if !ok {
		return errs.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return errs.ErrSessionNotFound
	}
	if len(e.conns) >= h.registry.limits.MaxViewersPerSession {
		return errs.ErrSessionFull
	}
	e.conns[conn] = struct{}{}
	metrics.ConnectedViewers.Inc()
	count := len(e.conns)

	state := e.stateLocked()
	started := state.Session.StartedAt
	info := model.Event{
		Type:        model.EventSessionInfo,
		ActivityID:  state.Session.ActivityID,
		OwnerName:   state.Session.OwnerName,
		SportType:   state.Session.SportType,
		StartedAt:   &started,
		LastPoint:   state.Session.LastPoint,
		ViewerCount: &count,
	}
	if raw, err := json.Marshal(info); err == nil {
		if err := conn.Enqueue(raw); err != nil {
			h.evictLocked(e, conn)
			return errs.ErrSessionNotFound
		}
	}
	joined := model.Event{Type: model.EventViewerJoined, ViewerCount: &count}
	h.fanoutLocked(e, joined, conn)

	h.log.Info("viewer attached",
		zap.String("activity_id", conn.ActivityID),
		zap.String("viewer_id", conn.ViewerID),
		zap.Int("viewer_count", count))
	return nil
}

// Detach removes a connection from its session (idempotent), notifies
// the remaining viewers, and releases the transport. It runs on every
// gateway exit path, whatever the cause of the disconnect.
func (h *Hub) Detach(conn *Conn) {
	if e, ok := h.registry.entryFor(conn.ActivityID); ok {
		e.mu.Lock()
		if _, member := e.conns[conn]; member {
			delete(e.conns, conn)
			metrics.ConnectedViewers.Dec()
			count := len(e.conns)
			left := model.Event{Type: model.EventViewerLeft, ViewerCount: &count}
			h.fanoutLocked(e, left, nil)
			h.log.Info("viewer detached",
				zap.String("activity_id", conn.ActivityID),
				zap.String("viewer_id", conn.ViewerID),
				zap.Int("viewer_count", count))
		}
		e.mu.Unlock()
	}
	conn.Close()
}

// Broadcast delivers an event to every connection registered for the
// session, except the excluded one. Returns the delivered count.
func (h *Hub) Broadcast(activityID string, ev model.Event, exclude *Conn) int {
	e, ok := h.registry.entryFor(activityID)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return h.fanoutLocked(e, ev, exclude)
}

// PushLocation records the owner's newest sample as the session's last
// known point and broadcasts it. Returns the number of viewers reached,
// a weak audience signal with no delivery guarantee.
func (h *Hub) PushLocation(activityID string, pt model.TrackPoint) (int, error) {
	e, ok := h.registry.entryFor(activityID)
	if !ok {
		return 0, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return 0, errs.ErrSessionNotFound
	}
	if !e.pushLimiter.Allow() {
		e.mu.Unlock()
		return 0, errs.ErrPushRateLimited
	}
	p := pt
	e.session.LastPoint = &p
	ev := model.Event{
		Type:       model.EventLocationUpdate,
		ActivityID: activityID,
		Point:      &p,
	}
	delivered := h.fanoutLocked(e, ev, nil)
	e.mu.Unlock()

	metrics.LocationUpdatesTotal.Inc()
	if h.archiver != nil {
		h.archiver.SavePoint(h.archiveCtx(), activityID, p)
	}
	return delivered, nil
}

// fanoutLocked enqueues an event on a snapshot of the connection set.
// Enqueueing never blocks: the slow socket writes happen in each
// connection's write pump, so one dead viewer cannot delay the rest. A
// failed enqueue evicts that connection; failures are isolated and there
// is no retry. Caller holds e.mu, which is what preserves the
// broadcaster's emission order per viewer.
func (h *Hub) fanoutLocked(e *entry, ev model.Event, exclude *Conn) int {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		return 0
	}
	conns := make([]*Conn, 0, len(e.conns))
	for c := range e.conns {
		if c != exclude {
			conns = append(conns, c)
		}
	}
	delivered := 0
	for _, c := range conns {
		if err := c.Enqueue(raw); err != nil {
			h.evictLocked(e, c)
			h.log.Warn("viewer evicted after delivery failure",
				zap.String("activity_id", c.ActivityID),
				zap.String("viewer_id", c.ViewerID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	metrics.BroadcastDeliveriesTotal.WithLabelValues(string(ev.Type)).Add(float64(delivered))
	return delivered
}

// evictLocked drops a dead connection from the set and force-closes its
// transport. Caller holds e.mu.
func (h *Hub) evictLocked(e *entry, c *Conn) {
	if _, member := e.conns[c]; member {
		delete(e.conns, c)
		metrics.ConnectedViewers.Dec()
	}
	metrics.EvictionsTotal.Inc()
	c.Close()
}

func (h *Hub) archiveCtx() context.Context {
	if h.ctx != nil {
		return h.ctx
	}
	return context.Background()
}
