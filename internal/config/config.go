package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds application configuration values.
type Config struct {
	APIBaseURL  string
	SessionDSN  string
	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	base := os.Getenv("API_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	dsn := os.Getenv("SESSION_DB")
	if dsn == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dsn = filepath.Join(home, ".bhcpharm", "session.db")
	}

	timeout := 30 * time.Second
	if raw := os.Getenv("HTTP_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			log.Printf("invalid HTTP_TIMEOUT_SECONDS value %q, defaulting to 30", raw)
		} else {
			timeout = time.Duration(secs) * time.Second
		}
	}

	return Config{APIBaseURL: base, SessionDSN: dsn, HTTPTimeout: timeout}
}
