package service

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/metrics"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
)

// Limits bounds the registry. Unbounded session and viewer growth is
// rejected with a sentinel error instead of accepted silently.
type Limits struct {
	MaxSessions          int
	MaxViewersPerSession int
	PushRatePerSec       float64
	PushBurst            int
}

// entry is the per-session unit of ownership: the session, its viewer
// connection set, and the push limiter. entry.mu guards the connection
// set, LastPoint, and every ordered fan-out; Registry.mu guards only the
// entries map. Lock order is Registry.mu before entry.mu.
type entry struct {
	mu          sync.Mutex
	removed     bool
	session     *model.LiveSession
	conns       map[*Conn]struct{}
	pushLimiter *rate.Limiter
}

// Registry owns the mapping from activity ID to live session state and
// viewer connection membership. It is the only shared mutable state in
// the live core and is constructed explicitly; nothing here is global.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	limits  Limits
}

// SessionState is a point-in-time copy of a session, safe to use without
// further synchronization.
type SessionState struct {
	Session     model.LiveSession
	ViewerCount int
}

// NewRegistry creates an empty registry with the given limits.
func NewRegistry(limits Limits) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		limits:  limits,
	}
}

// Create registers a new live session. At most one session exists per
// activity ID: a duplicate is a conflict, never an overwrite. Concurrent
// calls for the same ID yield exactly one success.
func (r *Registry) Create(sess *model.LiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sess.ActivityID]; ok {
		return errs.ErrSessionExists
	}
	if len(r.entries) >= r.limits.MaxSessions {
		return errs.ErrTooManySessions
	}
	r.entries[sess.ActivityID] = &entry{
		session:     sess,
		conns:       make(map[*Conn]struct{}),
		pushLimiter: rate.NewLimiter(rate.Limit(r.limits.PushRatePerSec), r.limits.PushBurst),
	}
	metrics.ActiveSessions.Inc()
	return nil
}

// Get returns the live session for an activity ID. The returned session's
// immutable fields may be read freely; LastPoint must be read via State.
func (r *Registry) Get(activityID string) (*model.LiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[activityID]
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	return e.session, nil
}

// State returns a consistent copy of the session together with its
// current viewer count.
func (r *Registry) State(activityID string) (SessionState, error) {
	e, ok := r.entryFor(activityID)
	if !ok {
		return SessionState{}, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return SessionState{}, errs.ErrSessionNotFound
	}
	return e.stateLocked(), nil
}

// States returns copies of every session matching the predicate.
func (r *Registry) States(pred func(*model.LiveSession) bool) []SessionState {
	r.mu.RLock()
	selected := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if pred == nil || pred(e.session) {
			selected = append(selected, e)
		}
	}
	r.mu.RUnlock()

	out := make([]SessionState, 0, len(selected))
	for _, e := range selected {
		e.mu.Lock()
		if !e.removed {
			out = append(out, e.stateLocked())
		}
		e.mu.Unlock()
	}
	return out
}

// Remove deletes the session and atomically detaches its whole
// connection set; no new connection can register once Remove returns the
// set. The caller owns closing the returned transports.
func (r *Registry) Remove(activityID string) ([]*Conn, error) {
	r.mu.Lock()
	e, ok := r.entries[activityID]
	if !ok {
		r.mu.Unlock()
		return nil, errs.ErrSessionNotFound
	}
	delete(r.entries, activityID)
	r.mu.Unlock()

	e.mu.Lock()
	e.removed = true
	conns := make([]*Conn, 0, len(e.conns))
	for c := range e.conns {
		conns = append(conns, c)
	}
	e.conns = make(map[*Conn]struct{})
	e.mu.Unlock()

	metrics.ActiveSessions.Dec()
	metrics.ConnectedViewers.Sub(float64(len(conns)))
	return conns, nil
}

// ConnCount returns the number of registered viewer connections.
func (r *Registry) ConnCount(activityID string) int {
	e, ok := r.entryFor(activityID)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

func (r *Registry) entryFor(activityID string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[activityID]
	return e, ok
}

// stateLocked copies the session with a deep copy of LastPoint. Caller
// holds e.mu.
func (e *entry) stateLocked() SessionState {
	sess := *e.session
	if e.session.LastPoint != nil {
		p := *e.session.LastPoint
		sess.LastPoint = &p
	}
	return SessionState{Session: sess, ViewerCount: len(e.conns)}
}
