package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"shophub/internal/config"
	"shophub/internal/stubapi"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	store := stubapi.NewStore()
	hub := stubapi.NewHub(logger)

	broadcaster, err := stubapi.NewBroadcaster(hub, cfg.RedisURL, cfg.RedisPassword, logger)
	if err != nil {
		logger.Error("broadcaster setup failed", "error", err)
		os.Exit(1)
	}
	defer broadcaster.Close()

	// pub/sub consumption only matters when Redis links multiple instances
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := broadcaster.Subscribe(ctx, cfg.RoleChannel); err != nil && ctx.Err() == nil {
				logger.Error("pub/sub subscription ended", "error", err)
			}
		}()
	}

	server := stubapi.NewServer(store, broadcaster, hub, cfg.JWTSecret, cfg.JWTExpiry, logger)
	if err := server.Run(fmt.Sprintf(":%d", cfg.StubPort)); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
