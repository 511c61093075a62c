package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	TokenTTL           time.Duration
	SchemaPath         string
	CORSAllowedOrigins []string
	AppTimezone        string
	LogLevel           string

	MongoURI    string
	MongoDBName string

	SettlementWebhookURL string
	WebhookTimeout       time.Duration

	LoginAttempts int
	LoginWindow   time.Duration
}

// Load reads the environment, after merging any of envFiles that exist.
// Variables already set in the process environment win over file values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed loading env file %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SchemaPath:           getEnvOrDefault("DB_SCHEMA_PATH", "db/schema.sql"),
		CORSAllowedOrigins:   splitCSVEnv(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		AppTimezone:          getEnvOrDefault("APP_TIMEZONE", "Asia/Kolkata"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		MongoURI:             strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDBName:          getEnvOrDefault("MONGODB_DB_NAME", "poultrytrade"),
		SettlementWebhookURL: strings.TrimSpace(os.Getenv("SETTLEMENT_WEBHOOK_URL")),
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.WebhookTimeout, err = durationEnv("WEBHOOK_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LoginWindow, err = durationEnv("LOGIN_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LoginAttempts, err = intEnv("LOGIN_ATTEMPTS", 10); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing required environment variable: DATABASE_URL")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing required environment variable: JWT_SECRET")
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.AppTimezone, err)
	}
	if c.LoginAttempts <= 0 {
		return errors.New("LOGIN_ATTEMPTS must be positive")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitCSVEnv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		item := strings.TrimSpace(p)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
