package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const devSecret = "dev-secret-change-in-production"

type Config struct {
	Port        string
	Env         string
	DatabaseDSN string
	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AMQPURL       string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	JWTLeeway   time.Duration

	LoginMaxAttempts int
	LoginCooldown    time.Duration
	AuthRateRPS      float64
	AuthRateBurst    int

	ReportCacheTTL    time.Duration
	LowStockThreshold int
}

func Load() Config {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseDSN: getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/stockpilot?parseTime=true"),
		CORSOrigins: getList("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		AMQPURL:       getEnv("AMQP_URL", ""),

		JWTSecret:   getEnv("JWT_SECRET", devSecret),
		JWTIssuer:   getEnv("JWT_ISSUER", "stockpilot"),
		JWTAudience: getEnv("JWT_AUDIENCE", "stockpilot-api"),
		AccessTTL:   time.Duration(getPositiveInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL:  time.Duration(getPositiveInt("REFRESH_TOKEN_TTL_MIN", 60*24*30)) * time.Minute,
		JWTLeeway:   time.Duration(getInt("JWT_LEEWAY_SEC", 60)) * time.Second,

		LoginMaxAttempts: getInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:    getDuration("LOGIN_COOLDOWN", 15*time.Minute),
		AuthRateRPS:      getFloat("AUTH_RATE_RPS", 5),
		AuthRateBurst:    getInt("AUTH_RATE_BURST", 10),

		ReportCacheTTL:    getDuration("REPORT_CACHE_TTL", 30*time.Second),
		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 5),
	}

	if cfg.Env == "production" && cfg.JWTSecret == devSecret {
		slog.Error("JWT_SECRET must be set in production environment")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

// getPositiveInt is getInt for settings where zero or less is meaningless.
func getPositiveInt(key string, fallback int) int {
	n := getInt(key, fallback)
	if n <= 0 {
		slog.Warn("non-positive value in environment, using default", "key", key, "value", n)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		slog.Warn("invalid number in environment, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getList(key, fallback string) []string {
	var out []string
	for _, p := range strings.Split(getEnv(key, fallback), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
