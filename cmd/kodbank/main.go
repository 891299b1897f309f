package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kodbank/go-bank-auth/config"
	"github.com/kodbank/go-bank-auth/logging"
	"github.com/kodbank/go-bank-auth/persistence"
	"github.com/kodbank/go-bank-auth/ratelimit"
	"github.com/kodbank/go-bank-auth/server"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sugar, err := logging.New(logging.Config{Development: cfg.IsDevelopment()})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer sugar.Sync()
	logger := logging.NewZapLogger(sugar)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persistence.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		sugar.Fatalf("database open failed: %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		sugar.Fatalf("database ping failed: %v", err)
	}
	if err := persistence.Migrate(ctx, db); err != nil {
		sugar.Fatalf("database migration failed: %v", err)
	}
	sugar.Infow("database ready", "driver", db.Driver)

	var storage fiber.Storage
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisStorage := ratelimit.NewRedisStorage(rdb, "")
		if err := redisStorage.Ping(ctx); err != nil {
			sugar.Fatalf("redis ping failed: %v", err)
		}
		storage = redisStorage
		sugar.Infow("rate limit counters in redis", "addr", cfg.Redis.Addr)
	}

	svc, err := server.Build(server.Deps{
		Config:  cfg,
		DB:      db.DB,
		Logger:  logger.Named("auth"),
		Storage: storage,
	})
	if err != nil {
		sugar.Fatalf("service wiring failed: %v", err)
	}

	purged, err := svc.Sessions.PurgeExpired(ctx)
	if err != nil {
		sugar.Warnw("expired session purge failed", "error", err)
	} else {
		sugar.Infow("expired sessions purged", "count", purged)
	}

	go func() {
		sugar.Infof("Server listening on %s (%s)", cfg.Addr(), cfg.Env)
		if err := svc.App.Listen(cfg.Addr()); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down server...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := svc.App.ShutdownWithContext(ctxShut); err != nil {
		sugar.Errorf("fiber shutdown error: %v", err)
	}

	if storage != nil {
		if err := storage.Close(); err != nil {
			sugar.Errorf("redis close error: %v", err)
		}
	}

	if err := db.Close(); err != nil {
		sugar.Errorf("database close error: %v", err)
	}

	sugar.Info("Graceful shutdown complete")
}
