package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hub_wallet/internal/config"
	"hub_wallet/internal/handlers"
	"hub_wallet/internal/infra"
	"hub_wallet/internal/logging"
	"hub_wallet/internal/middleware"
	"hub_wallet/internal/repository"
	"hub_wallet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

type walletStore interface {
	service.WalletStore
	migrator
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := logging.SetupLogger(cfg.LogLevel)

	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate store", "err", err)
			os.Exit(1)
		}
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("failed to close redis", "err", err)
			}
		}()
	} else {
		logger.Info("REDIS_URL not set, adjustment rate limit disabled")
	}

	svc := service.NewWalletService(store, logger)
	handler := handlers.NewWalletHTTPHandler(svc,
		handlers.WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize),
		handlers.WithAdjustMiddleware(middleware.AdjustRateLimit(cache, cfg.AdjustRateLimit, logger)),
	)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "driver", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", "err", err)
	}
	logger.Info("Server exiting")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (walletStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := infra.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close sqlite", "err", err)
			}
		}
		return repository.NewWalletSQLiteRepository(db, logger), closeDB, nil
	default:
		pool, err := infra.NewPostgresPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewWalletPGRepository(pool, logger), pool.Close, nil
	}
}
