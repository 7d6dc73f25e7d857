package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/auth"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/handler"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/pkg/constants"
)

// New builds the HTTP router.
func New(
	sessionHandler *handler.SessionHandler,
	liveWS *handler.LiveWSHandler,
	health *handler.HealthHandler,
	verifier auth.Verifier,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)
	r.GET(constants.PathMetrics, gin.WrapH(promhttp.Handler()))

	// REST live sessions (bearer auth)
	live := r.Group("/live", auth.Middleware(verifier))
	{
		live.POST("/sessions", sessionHandler.StartSession)
		live.GET("/sessions", sessionHandler.ListSessions)
		live.GET("/sessions/:activity_id", sessionHandler.GetSession)
		live.DELETE("/sessions/:activity_id", sessionHandler.EndSession)
		live.POST("/sessions/:activity_id/location", sessionHandler.PushLocation)
	}

	// WebSocket: /ws/live/:activity_id?token=...
	// The gateway authenticates inside the handshake so it can answer
	// with a websocket close status instead of an HTTP error.
	r.GET("/ws/live/:activity_id", liveWS.ServeWS)

	return r
}
