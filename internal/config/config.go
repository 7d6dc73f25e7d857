package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds live-tracking-service configuration.
type Config struct {
	AppEnv   string // APP_ENV
	AppHost  string // APP_HOST
	HTTPPort string // APP_PORT or HTTP_PORT
	LogLevel string // LOG_LEVEL

	// Bearer token verification
	JWTSecret string

	// PostgreSQL archive store (optional, see ArchiveEnabled)
	ArchiveEnabled bool
	DB             struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	// WebSocket
	WSReadBufferSize  int
	WSWriteBufferSize int
	WSMaxMessageSize  int64
	WSSendBuffer      int
	WSWriteTimeoutSec int

	// Live session limits
	MaxSessions          int
	MaxViewersPerSession int
	MaxAllowedViewers    int
	PushRatePerSec       float64
	PushBurst            int
}

// Load loads config from environment (.env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	readBuf, _ := strconv.Atoi(getEnv("WS_READ_BUFFER_SIZE", "4096"))
	writeBuf, _ := strconv.Atoi(getEnv("WS_WRITE_BUFFER_SIZE", "4096"))
	maxMsg, _ := strconv.ParseInt(getEnv("WS_MAX_MESSAGE_SIZE", "65536"), 10, 64)
	sendBuf, _ := strconv.Atoi(getEnv("WS_SEND_BUFFER", "256"))
	writeTO, _ := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))

	maxSessions, _ := strconv.Atoi(getEnv("LIVE_MAX_SESSIONS", "1000"))
	maxViewers, _ := strconv.Atoi(getEnv("LIVE_MAX_VIEWERS_PER_SESSION", "100"))
	maxAllowed, _ := strconv.Atoi(getEnv("LIVE_MAX_ALLOWED_VIEWERS", "100"))
	pushRate, _ := strconv.ParseFloat(getEnv("LIVE_PUSH_RATE", "5"), 64)
	pushBurst, _ := strconv.Atoi(getEnv("LIVE_PUSH_BURST", "10"))

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		AppHost:              getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:             firstEnv("APP_PORT", "HTTP_PORT", "8090"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		JWTSecret:            getEnv("JWT_SECRET", "dev-secret"),
		ArchiveEnabled:       getEnv("ARCHIVE_ENABLED", "false") == "true",
		WSReadBufferSize:     readBuf,
		WSWriteBufferSize:    writeBuf,
		WSMaxMessageSize:     maxMsg,
		WSSendBuffer:         sendBuf,
		WSWriteTimeoutSec:    writeTO,
		MaxSessions:          maxSessions,
		MaxViewersPerSession: maxViewers,
		MaxAllowedViewers:    maxAllowed,
		PushRatePerSec:       pushRate,
		PushBurst:            pushBurst,
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "sports_tracker_live")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

// Validate checks required fields and production safety.
func (c *Config) Validate() error {
	if c.AppEnv == "production" && c.JWTSecret == "dev-secret" {
		return errors.New("config: in production JWT_SECRET is required")
	}
	if c.MaxSessions <= 0 || c.MaxViewersPerSession <= 0 || c.MaxAllowedViewers <= 0 {
		return errors.New("config: live session limits must be positive")
	}
	if !c.ArchiveEnabled {
		return nil
	}
	if c.DB.Host == "" {
		return errors.New("config: DB_HOST is required when ARCHIVE_ENABLED")
	}
	if c.DB.User == "" {
		return errors.New("config: DB_USER is required when ARCHIVE_ENABLED")
	}
	if c.DB.Database == "" {
		return errors.New("config: DB_DATABASE is required when ARCHIVE_ENABLED")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	return nil
}

// DSN returns PostgreSQL connection string for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

// DatabaseURL returns a postgres URL for golang-migrate.
func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	keys := keysAndDef[:len(keysAndDef)-1]
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
