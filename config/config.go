package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration, loaded from the environment.
type Config struct {
	HTTP struct {
		Addr string
	}
	Auth struct {
		JWTSecret      string
		TokenTTL       time.Duration
		AllowAnonymous bool
	}
	DB struct {
		Path string
	}
	Room struct {
		HistoryLimit  int
		GraceDelay    time.Duration
		SweepInterval time.Duration
	}
	Log struct {
		Level string
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "your-secret-key-for-development")
	cfg.Auth.TokenTTL = parseDuration(getEnv("TOKEN_TTL", "168h"), 168*time.Hour)
	// Tokenless connections degrade to anonymous identities instead of
	// being refused. Turning this off rejects the handshake outright.
	cfg.Auth.AllowAnonymous = getEnv("ALLOW_ANONYMOUS", "true") == "true"

	cfg.DB.Path = getEnv("DB_PATH", "studysync.db")

	cfg.Room.HistoryLimit = parseInt(getEnv("CHAT_HISTORY_LIMIT", "50"), 50)
	cfg.Room.GraceDelay = parseDuration(getEnv("TERMINATE_GRACE_DELAY", "1s"), time.Second)
	cfg.Room.SweepInterval = parseDuration(getEnv("ROOM_SWEEP_INTERVAL", "30m"), 30*time.Minute)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
