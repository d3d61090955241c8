package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	Env             string
	LogLevel        string
	PredictURL      string
	BackendURL      string
	PredictTimeout  time.Duration
	UpstreamTimeout time.Duration
	CacheTTL        time.Duration
	DBDriver        string
	DSN             string
	SessionSecret   string
	JournalKey      string
	AllowedOrigins  []string
	StaticDir       string
}

// New loads .env (if present) and reads the environment.
func New() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		Addr:            getEnv("ADDR", ":3002"),
		Env:             getEnv("APP_ENV", "production"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		PredictURL:      strings.TrimRight(getEnv("PREDICT_API_URL", "https://gad7.anoto.my.id"), "/"),
		BackendURL:      strings.TrimRight(getEnv("BACKEND_API_URL", "https://backend.anoto.my.id"), "/"),
		PredictTimeout:  getDuration("PREDICT_TIMEOUT", 10*time.Second),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		CacheTTL:        getDuration("CACHE_TTL", time.Hour),
		DBDriver:        getEnv("DB_DRIVER", "mysql"),
		DSN:             os.Getenv("DSN"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		JournalKey:      os.Getenv("JOURNAL_KEY"),
		AllowedOrigins:  getList("ALLOWED_ORIGINS", []string{"*"}),
		StaticDir:       os.Getenv("STATIC_DIR"),
	}
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

// StorageEnabled reports whether a database is configured. Without one the
// service still proxies, it just keeps no history.
func (c *Config) StorageEnabled() bool {
	return c.DSN != ""
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getList(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
