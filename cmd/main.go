package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mernshop/storefront/internal/router"
	"github.com/mernshop/storefront/pkg/auth"
	"github.com/mernshop/storefront/pkg/cart"
	"github.com/mernshop/storefront/pkg/catalog"
	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/mongo"
	"github.com/mernshop/storefront/pkg/redis"
	"github.com/mernshop/storefront/pkg/telemetry"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		bootstrap := global.NewLogger(os.Stderr, "development", "info")
		bootstrap.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := global.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *global.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := global.GetDefaultTimer()
	defer cancel()
	startCtx = logger.WithContext(startCtx)

	store, err := mongo.Connect(startCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := global.GetDefaultTimer()
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("close mongo")
		}
	}()
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

	if err := store.EnsureIndexes(startCtx); err != nil {
		return err
	}

	metrics := telemetry.New()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	deps := router.Deps{
		Auth:    auth.NewService(store, tokens, cfg.BcryptCost, metrics),
		Catalog: catalog.NewService(store),
		Cart:    cart.NewService(store, store, metrics),
		Metrics: metrics,
		Logger:  logger,
	}

	if cfg.RedisAddress != "" {
		client, err := redis.NewClient(startCtx, cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer func(c *goredis.Client) {
			if err := c.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}(client)
		deps.Limiter = redis.NewAttemptLimiter(client, cfg.AuthRateLimit, cfg.AuthRateWindow)
		logger.Info().
			Int("limit", cfg.AuthRateLimit).
			Dur("window", cfg.AuthRateWindow).
			Msg("auth rate limiting enabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewEngine(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("base_path", cfg.BasePath).Msg("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
