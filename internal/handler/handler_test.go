package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/auth"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/config"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/handler"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/router"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// testApp is the fully wired live core behind a real router.
type testApp struct {
	http      http.Handler
	registry  *service.Registry
	hub       *service.Hub
	lifecycle *service.Lifecycle
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		AppEnv:               "test",
		JWTSecret:            testSecret,
		WSReadBufferSize:     1024,
		WSWriteBufferSize:    1024,
		WSMaxMessageSize:     65536,
		WSSendBuffer:         64,
		WSWriteTimeoutSec:    5,
		MaxSessions:          100,
		MaxViewersPerSession: 10,
		MaxAllowedViewers:    10,
		PushRatePerSec:       1000,
		PushBurst:            1000,
	}
	logger := zap.NewNop()
	registry := service.NewRegistry(service.Limits{
		MaxSessions:          cfg.MaxSessions,
		MaxViewersPerSession: cfg.MaxViewersPerSession,
		PushRatePerSec:       cfg.PushRatePerSec,
		PushBurst:            cfg.PushBurst,
	})
	hub := service.NewHub(registry, logger)
	lifecycle := service.NewLifecycle(registry, hub, cfg.MaxAllowedViewers, logger)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	sessionHandler := handler.NewSessionHandler(registry, hub, lifecycle)
	liveWS := handler.NewLiveWSHandler(registry, hub, verifier, cfg, logger)
	health := handler.NewHealthHandler()

	return &testApp{
		http:      router.New(sessionHandler, liveWS, health, verifier),
		registry:  registry,
		hub:       hub,
		lifecycle: lifecycle,
	}
}

// tokenFor signs an access token the way the auth service does.
func tokenFor(t *testing.T, userID, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
