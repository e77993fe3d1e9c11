package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"pgx"`

	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	RefreshSecret string        `envconfig:"REFRESH_SECRET" required:"true"`
	AccessTTL     time.Duration `envconfig:"ACCESS_TTL" default:"15m"`
	RefreshTTL    time.Duration `envconfig:"REFRESH_TTL" default:"168h"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"false"`

	ServerPort  string   `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	ESURL      string `envconfig:"ES_URL"`
	ESUser     string `envconfig:"ES_USER"`
	ESPassword string `envconfig:"ES_PASSWORD"`
	ESIndex    string `envconfig:"ES_INDEX" default:"campaigns"`

	CacheEnabled bool `envconfig:"CACHE_ENABLED" default:"true"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("notice: .env file not found, using system environment variables", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" || cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("load config: DATABASE_URL, JWT_SECRET and REFRESH_SECRET are required")
	}
	if cfg.JWTSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("load config: JWT_SECRET and REFRESH_SECRET must differ")
	}
	return &cfg, nil
}
