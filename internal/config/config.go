package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration read from the environment.
type Config struct {
	AppEnv string
	Addr   string

	Postgres PostgresConfig
	Redis    RedisConfig

	// SigningSecret signs member contract links and verifies bearer tokens.
	SigningSecret []byte
	SignLinkTTL   time.Duration

	// StrictInvariants makes order/credit invariant violations fail the
	// transaction instead of only being logged.
	StrictInvariants bool

	CacheTTL time.Duration

	NotificationWorkers int
	CampaignJobInterval time.Duration

	// PublicRateRPS and PublicRateBurst limit unauthenticated routes per IP.
	PublicRateRPS   float64
	PublicRateBurst int
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

// DSN returns a postgres URL understood by both lib/pq and pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load reads the environment. Outside production a local .env file is
// loaded first when present.
func Load() (*Config, error) {
	appEnv := getEnv("APP_ENV", "development")
	if appEnv != "production" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		AppEnv: appEnv,
		Addr:   getEnv("SERVER_ADDR", ":8080"),
		Postgres: PostgresConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			User:     os.Getenv("PG_USER"),
			Password: os.Getenv("PG_PASSWORD"),
			DB:       os.Getenv("PG_DB"),
			SSLMode:  getEnv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		SigningSecret:       []byte(os.Getenv("SIGNING_SECRET")),
		SignLinkTTL:         getDuration("SIGN_LINK_TTL", 14*24*time.Hour),
		StrictInvariants:    getBool("STRICT_INVARIANTS", appEnv != "production"),
		CacheTTL:            getDuration("CACHE_TTL", 5*time.Minute),
		NotificationWorkers: getInt("NOTIFICATION_WORKERS", 2),
		CampaignJobInterval: getDuration("CAMPAIGN_JOB_INTERVAL", time.Hour),
		PublicRateRPS:       getFloat("PUBLIC_RATE_RPS", 1),
		PublicRateBurst:     getInt("PUBLIC_RATE_BURST", 5),
	}

	if len(cfg.SigningSecret) == 0 {
		if appEnv == "production" {
			return nil, fmt.Errorf("SIGNING_SECRET must be set in production")
		}
		cfg.SigningSecret = []byte("dev-signing-secret")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
