package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/auth"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/service"
)

// SessionHandler handles the REST API for live sessions.
type SessionHandler struct {
	registry  *service.Registry
	hub       *service.Hub
	lifecycle *service.Lifecycle
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(registry *service.Registry, hub *service.Hub, lifecycle *service.Lifecycle) *SessionHandler {
	return &SessionHandler{registry: registry, hub: hub, lifecycle: lifecycle}
}

// StartSession handles POST /live/sessions.
func (h *SessionHandler) StartSession(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req model.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	sess, err := h.lifecycle.Start(req.ActivityID, p.UserID, p.DisplayName, req.SportType, req.IsPublic, req.AllowedViewers)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionExists):
			c.JSON(http.StatusConflict, gin.H{"error": "live session already exists for this activity"})
		case errors.Is(err, errs.ErrTooManyAllowedViewers):
			c.JSON(http.StatusBadRequest, gin.H{"error": "allowed viewer list too large"})
		case errors.Is(err, errs.ErrTooManySessions):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "live session limit reached"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		}
		return
	}
	c.JSON(http.StatusCreated, model.SessionResponse{
		ActivityID:  sess.ActivityID,
		OwnerID:     sess.OwnerID,
		OwnerName:   sess.OwnerName,
		SportType:   sess.SportType,
		StartedAt:   sess.StartedAt,
		IsPublic:    sess.IsPublic(),
		ViewerCount: 0,
	})
}

// EndSession handles DELETE /live/sessions/:activity_id.
func (h *SessionHandler) EndSession(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	err := h.lifecycle.End(c.Param("activity_id"), p.UserID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "live session not found"})
		case errors.Is(err, errs.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can end a session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSessions handles GET /live/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	states := h.lifecycle.ListVisible(p.UserID)
	resp := model.SessionListResponse{Sessions: make([]model.SessionResponse, 0, len(states))}
	for _, st := range states {
		resp.Sessions = append(resp.Sessions, toSessionResponse(st))
	}
	c.JSON(http.StatusOK, resp)
}

// GetSession handles GET /live/sessions/:activity_id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	state, err := h.lifecycle.Get(c.Param("activity_id"), p.UserID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "live session not found"})
		case errors.Is(err, errs.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "no permission to view this session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		}
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(state))
}

// PushLocation handles POST /live/sessions/:activity_id/location. Only
// the session owner may push; the response carries the delivered viewer
// count as a weak audience signal.
func (h *SessionHandler) PushLocation(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	activityID := c.Param("activity_id")
	sess, err := h.registry.Get(activityID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "live session not found"})
		return
	}
	if sess.OwnerID != p.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can push location updates"})
		return
	}
	var req model.LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location", "message": err.Error()})
		return
	}
	delivered, err := h.hub.PushLocation(activityID, req.Point(time.Now().UTC()))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "live session not found"})
		case errors.Is(err, errs.ErrPushRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "location push rate limit exceeded"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to push location"})
		}
		return
	}
	c.JSON(http.StatusOK, model.PushLocationResponse{BroadcastTo: delivered})
}

func toSessionResponse(st service.SessionState) model.SessionResponse {
	return model.SessionResponse{
		ActivityID:  st.Session.ActivityID,
		OwnerID:     st.Session.OwnerID,
		OwnerName:   st.Session.OwnerName,
		SportType:   st.Session.SportType,
		StartedAt:   st.Session.StartedAt,
		IsPublic:    st.Session.IsPublic(),
		ViewerCount: st.ViewerCount,
		LastPoint:   st.Session.LastPoint,
	}
}
