package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minJWTSecretLength = 32

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	SupabaseJWTSecret   string `env:"SUPABASE_JWT_SECRET"`
	SupabaseJWTAudience string `env:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`
	SupabaseJWTIssuer   string `env:"SUPABASE_JWT_ISSUER"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	WSPingInterval          time.Duration `env:"WS_PING_INTERVAL" default:"25s"`
	WSPongTimeout           time.Duration `env:"WS_PONG_TIMEOUT" default:"20s"`
	MaxWebSocketConnections int           `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int           `env:"MAX_CONNECTIONS_PER_IP" default:"20"`
	InstanceHeartbeat       time.Duration `env:"INSTANCE_HEARTBEAT" default:"15s"`

	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" default:"1m"`
	ReminderLeadTime time.Duration `env:"REMINDER_LEAD_TIME" default:"24h"`

	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" default:"5m"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.SupabaseJWTSecret == "" {
		return errors.New("SUPABASE_JWT_SECRET is required")
	}
	if len(cfg.SupabaseJWTSecret) < minJWTSecretLength {
		return fmt.Errorf("SUPABASE_JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if cfg.WSPingInterval <= 0 {
		return errors.New("WS_PING_INTERVAL must be positive")
	}
	if cfg.WSPongTimeout <= 0 {
		return errors.New("WS_PONG_TIMEOUT must be positive")
	}
	if cfg.MaxWebSocketConnections <= 0 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be positive")
	}
	if cfg.MaxConnectionsPerIP < 0 {
		return errors.New("MAX_CONNECTIONS_PER_IP must not be negative")
	}
	if cfg.InstanceHeartbeat <= 0 {
		return errors.New("INSTANCE_HEARTBEAT must be positive")
	}
	if cfg.ReminderInterval <= 0 {
		return errors.New("REMINDER_INTERVAL must be positive")
	}

	if cfg.IsProduction() {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
		if len(cfg.AllowedOrigins) == 0 {
			return errors.New("ALLOWED_ORIGINS is required in production")
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}

// normalizeOrigins trims whitespace and trailing slashes so entries compare
// equal to the browser-sent Origin header.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
