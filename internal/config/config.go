package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DBPath          string
	LogLevel        string
	JWTSecret       string
	TokenTTLHours   int
	QuestionsPerDay int
	DailyTier       string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("ADDR", ":8080"),
		DBPath:          envOr("DB_PATH", "file:estimatic.db"),
		LogLevel:        envOr("LOG_LEVEL", "INFO"),
		JWTSecret:       envOr("JWT_SECRET", "estimatic-dev-secret"),
		TokenTTLHours:   envIntOr("TOKEN_TTL_HOURS", 24*30),
		QuestionsPerDay: envIntOr("QUESTIONS_PER_DAY", 5),
		DailyTier:       envOr("DAILY_TIER", "daily"),
	}
}

// Validate checks the configuration for values the server cannot start with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", c.TokenTTLHours)
	}
	if c.QuestionsPerDay <= 0 {
		return fmt.Errorf("QUESTIONS_PER_DAY must be positive, got %d", c.QuestionsPerDay)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
