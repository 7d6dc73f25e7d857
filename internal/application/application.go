package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/archive"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/auth"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/config"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/database"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/handler"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/router"
	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/service"
)

// API is the HTTP + WebSocket live tracking application.
type API struct {
	cfg *config.Config
	srv *http.Server
	hub *service.Hub
	log *zap.Logger
}

// NewAPI wires the application: config validation, optional archive
// store (migrations + DB), registry, broadcast engine, lifecycle
// manager, handlers, and router. The registry is constructed here and
// injected everywhere; there is no ambient global state.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	registry := service.NewRegistry(service.Limits{
		MaxSessions:          cfg.MaxSessions,
		MaxViewersPerSession: cfg.MaxViewersPerSession,
		PushRatePerSec:       cfg.PushRatePerSec,
		PushBurst:            cfg.PushBurst,
	})
	hub := service.NewHub(registry, logger)
	lifecycle := service.NewLifecycle(registry, hub, cfg.MaxAllowedViewers, logger)

	if cfg.ArchiveEnabled {
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		hub.SetArchiver(archive.NewStore(db, logger))
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	sessionHandler := handler.NewSessionHandler(registry, hub, lifecycle)
	liveWS := handler.NewLiveWSHandler(registry, hub, verifier, cfg, logger)
	health := handler.NewHealthHandler()

	r := router.New(sessionHandler, liveWS, health, verifier)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, hub: hub, log: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then
// shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.srv.Addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Live sessions: %s/live/sessions", base)
	log.Printf("  WebSocket:     ws://%s:%s/ws/live/:activity_id", host, a.cfg.HTTPPort)

	// App context in the hub so archive writes stop with the process.
	a.hub.SetContext(ctx)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	_ = a.log.Sync()
	return nil
}
