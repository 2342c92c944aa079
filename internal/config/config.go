// Package config loads runtime settings from the environment, with a .env
// file picked up in development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	Port           string
	MigrationsPath string

	SimInterval    time.Duration
	SimSymbolLimit int
	SimDisabled    bool
	ProfilesPath   string
}

// Load reads configuration from the process environment. Only missing values
// fall back to defaults; a malformed value is treated as unset.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Port:           envOr("PORT", "8080"),
		MigrationsPath: envOr("MIGRATIONS_PATH", "migrations"),
		SimInterval:    envDuration("SIM_INTERVAL", 2*time.Second),
		SimSymbolLimit: envInt("SIM_SYMBOL_LIMIT", 50),
		SimDisabled:    envBool("SIM_DISABLED"),
		ProfilesPath:   os.Getenv("SIM_PROFILES_PATH"),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
