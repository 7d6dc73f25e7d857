package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/auth"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/config"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/model"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/service"
)

// LiveWSHandler is the realtime gateway: it authenticates a viewer
// connection, checks access, registers it with the session registry, and
// relays keep-alives until the channel closes.
//
// Path: /ws/live/:activity_id?token=<access token>
type LiveWSHandler struct {
	registry *service.Registry
	hub      *service.Hub
	verifier auth.Verifier
	logger   *zap.Logger

	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	maxMsgSize   int64
}

// NewLiveWSHandler creates the realtime gateway handler.
func NewLiveWSHandler(registry *service.Registry, hub *service.Hub, verifier auth.Verifier, cfg *config.Config, logger *zap.Logger) *LiveWSHandler {
	return &LiveWSHandler{
		registry: registry,
		hub:      hub,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WSReadBufferSize,
			WriteBufferSize: cfg.WSWriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sendBuffer:   cfg.WSSendBuffer,
		writeTimeout: time.Duration(cfg.WSWriteTimeoutSec) * time.Second,
		maxMsgSize:   cfg.WSMaxMessageSize,
	}
}

// ServeWS runs the per-connection state machine: handshake, authenticate,
// authorize, register, relay, and finally deregister on every exit path.
func (h *LiveWSHandler) ServeWS(c *gin.Context) {
	activityID := c.Param("activity_id")
	token := c.Query("token")

	// Handshake first so every refusal can carry a close status the
	// client distinguishes from a transport failure.
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	p, err := h.verifier.Verify(token)
	if err != nil {
		h.reject(ws, model.CloseInvalidToken, "invalid token")
		return
	}

	sess, err := h.registry.Get(activityID)
	if err != nil {
		h.reject(ws, model.CloseSessionNotFound, "session not found")
		return
	}
	if !service.CanView(sess, p.UserID) {
		h.reject(ws, model.CloseAccessDenied, "access denied")
		return
	}

	if h.maxMsgSize > 0 {
		ws.SetReadLimit(h.maxMsgSize)
	}
	conn := service.NewConn(activityID, p.UserID, ws, h.sendBuffer)
	if err := h.hub.Attach(conn); err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionFull):
			h.reject(ws, websocket.CloseTryAgainLater, "session full")
		default:
			h.reject(ws, model.CloseSessionGone, "session no longer active")
		}
		return
	}
	defer h.hub.Detach(conn)

	go conn.WritePump(h.writeTimeout)
	h.readLoop(conn)
}

// readLoop answers inbound pings and otherwise just keeps the channel
// open until the transport closes for any reason.
func (h *LiveWSHandler) readLoop(conn *service.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error",
					zap.String("activity_id", conn.ActivityID),
					zap.String("viewer_id", conn.ViewerID),
					zap.Error(err))
			}
			return
		}
		var msg model.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == model.EventPing {
			now := time.Now().UTC()
			if raw, err := json.Marshal(model.Event{Type: model.EventPong, Timestamp: &now}); err == nil {
				_ = conn.Enqueue(raw)
			}
		}
	}
}

// reject closes a connection that never got registered, with a status
// code the client can act on.
func (h *LiveWSHandler) reject(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = ws.Close()
}
