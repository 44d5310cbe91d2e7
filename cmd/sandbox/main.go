package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lenden-pay/lenden/internal/config"
	"github.com/lenden-pay/lenden/internal/infra"
	"github.com/lenden-pay/lenden/internal/logging"
	"github.com/lenden-pay/lenden/internal/sandbox"
	"github.com/lenden-pay/lenden/internal/sandbox/sessions"
	"github.com/lenden-pay/lenden/internal/sandbox/store"
)

var configPath = kingpin.Flag("config", "Path to the yaml configuration file.").Short('c').String()

func main() {
	kingpin.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logger.Level)

	ctx := context.Background()

	var st store.Store = store.NewMemory()
	if cfg.Sandbox.DatabaseURL != "" {
		pool, err := infra.NewPostgresPool(ctx, cfg.Sandbox.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		st = store.NewPostgres(pool)
		logger.Info("using postgres store")
	}

	var cache *redis.Client
	var tokens sessions.Store = sessions.NewMemory(cfg.Sandbox.SessionTTL())
	if cfg.Sandbox.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.Sandbox.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		tokens = sessions.NewRedis(cache, cfg.Sandbox.SessionTTL())
		logger.Info("using redis sessions")
	}

	srv := sandbox.New(st, tokens, cache, logger, sandbox.Options{
		AppName:        cfg.Application,
		SessionTTL:     cfg.Sandbox.SessionTTL(),
		IdempotencyTTL: cfg.Sandbox.IdempotencyTTL(),
		LoginPerMinute: cfg.Sandbox.LoginPerMinute,
	})

	if err := srv.SeedAdmin(ctx, sandbox.AdminSeed{
		Name:  cfg.Sandbox.AdminName,
		Email: cfg.Sandbox.AdminEmail,
		Phone: cfg.Sandbox.AdminPhone,
		PIN:   cfg.Sandbox.AdminPIN,
	}); err != nil {
		logger.Error("seed admin account", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen(cfg.Sandbox.Address())
	}()
	logger.Info("sandbox listening", "address", cfg.Sandbox.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sandbox.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("sandbox exited cleanly")
}
