package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"mindcascade/internal/logger"

	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

type Config struct {
	AppPort     string
	DatabaseURL string // пусто - прогресс живёт только в памяти
	JWTSecret   string
	SessionTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Launch gate
	ProbeURL     string
	ProbeTimeout time.Duration // 0 - без собственного таймаута

	APIRateLimit   int
	APIRateWindow  time.Duration
	WriteRateLimit int // на сессию, для записи очков и наград
	AllowedOrigin  string

	LogLevel string
	LogJSON  bool
}

// Load reads .env (if present) and the environment, exiting on invalid config
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from the current environment
func Parse() (*Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:        port,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      jwtSecret,
		SessionTTL:     seconds("SESSION_TTL_SECONDS", 30*24*time.Hour),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        positiveInt("REDIS_DB", 0),
		ProbeURL:       os.Getenv("PROBE_URL"),
		ProbeTimeout:   seconds("PROBE_TIMEOUT_SECONDS", 0),
		APIRateLimit:   positiveInt("API_RATE_LIMIT", 120),
		APIRateWindow:  seconds("API_RATE_WINDOW_SECONDS", time.Minute),
		WriteRateLimit: positiveInt("API_WRITE_RATE_LIMIT", 60),
		AllowedOrigin:  os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:       logLevel,
		LogJSON:        os.Getenv("LOG_JSON") == "true",
	}, nil
}

func positiveInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func seconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
