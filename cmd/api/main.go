package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/stockpilot/stockpilot-go/internal/cache"
	"github.com/stockpilot/stockpilot-go/internal/config"
	"github.com/stockpilot/stockpilot-go/internal/crypto"
	"github.com/stockpilot/stockpilot-go/internal/events"
	"github.com/stockpilot/stockpilot-go/internal/handler"
	"github.com/stockpilot/stockpilot-go/internal/limiter"
	"github.com/stockpilot/stockpilot-go/internal/repository"
	"github.com/stockpilot/stockpilot-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Env == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(cfg.DatabaseDSN); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	tokens, err := crypto.NewTokenManager(crypto.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   cfg.JWTLeeway,
	})
	if err != nil {
		slog.Error("invalid token configuration", "error", err)
		os.Exit(1)
	}

	var (
		throttle    service.LoginThrottle
		reportCache service.ReportCache
	)
	if rdb := connectRedis(cfg); rdb != nil {
		defer rdb.Close()
		throttle = limiter.NewLoginThrottle(rdb, limiter.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Cooldown:    cfg.LoginCooldown,
		})
		reportCache = cache.NewReportCache(rdb, cfg.ReportCacheTTL)
	}

	publisher := connectBroker(cfg)
	defer publisher.Close()

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	authService := service.NewAuthService(userRepo, tokens, service.TokenTTL{
		Access:  cfg.AccessTTL,
		Refresh: cfg.RefreshTTL,
	}, throttle, publisher)
	productService := service.NewProductService(productRepo, reportCache, publisher, cfg.LowStockThreshold)
	profileService := service.NewProfileService(profileRepo)
	reportService := service.NewReportService(productRepo, reportCache, cfg.LowStockThreshold)

	router := handler.NewRouter(
		handler.RouterConfig{
			Tokens:      tokens,
			CORSOrigins: cfg.CORSOrigins,
			AuthRPS:     cfg.AuthRateRPS,
			AuthBurst:   cfg.AuthRateBurst,
		},
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(authService, profileService),
		handler.NewProductHandler(productService),
		handler.NewReportHandler(reportService),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// connectRedis returns nil when Redis is unreachable; the login throttle and
// report cache are then disabled.
func connectRedis(cfg config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, login throttle and report cache disabled", "addr", cfg.RedisAddr, "error", err)
		rdb.Close()
		return nil
	}
	return rdb
}

func connectBroker(cfg config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP_URL not set, domain events are discarded")
		return events.Noop{}
	}
	pub, err := events.DialAMQP(cfg.AMQPURL)
	if err != nil {
		slog.Warn("message broker unavailable, domain events are discarded", "error", err)
		return events.Noop{}
	}
	return pub
}
