package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/auth"
	"github.com/pelusa-v/bearboo-letters/internal/codec"
	"github.com/pelusa-v/bearboo-letters/internal/config"
	"github.com/pelusa-v/bearboo-letters/internal/handlers"
	"github.com/pelusa-v/bearboo-letters/internal/logging"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/relay"
)

func openRepository(ctx context.Context, cfg config.AuthConfig) (auth.Repository, error) {
	if cfg.Driver == "postgres" {
		return auth.NewPostgresRepository(ctx, cfg.DatabaseURL)
	}
	return auth.NewSQLiteRepository(ctx, cfg.SQLitePath)
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (realtime.Backend, error) {
	switch cfg.Backend {
	case "pebble":
		return realtime.OpenPebbleBackend(cfg.PebblePath)
	case "redis":
		return realtime.NewRedisBackend(ctx, cfg.RedisURL)
	default:
		return realtime.NewMemoryBackend(), nil
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (*realtime.Store, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return realtime.NewStore(backend, logger), nil
}

// pruneSessions drops expired bearer tokens once an hour.
func pruneSessions(ctx context.Context, svc *auth.Service, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PruneExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("session prune failed")
			} else if n > 0 {
				logger.Info().Int64("removed", n).Msg("expired sessions pruned")
			}
		}
	}
}

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if _, err := codec.ByName(cfg.Codec); err != nil {
		logger.Fatal().Err(err).Str("codec", cfg.Codec).Msg("unknown codec")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := openRepository(ctx, cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Auth.Driver).Msg("account store connection failed")
	}
	defer repo.Close()
	logger.Info().Str("driver", cfg.Auth.Driver).Msg("account store ready")

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("realtime backend failed")
	}
	defer store.Close()
	logger.Info().Str("backend", cfg.Store.Backend).Msg("realtime store ready")

	sweeper, err := realtime.NewSweeper(store, cfg.Presence.SweepCron, cfg.Presence.StaleAfter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("presence sweeper")
	}
	go sweeper.Run(ctx)

	svc := auth.NewService(repo, store, cfg.Auth, logger)
	go pruneSessions(ctx, svc, logger)

	rm := relay.NewManager(logger)
	go rm.Start()
	defer rm.Stop()

	app := handlers.NewHandler(cfg, svc, store, rm, logger).NewApp()

	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("env", cfg.Env).
			Msg("starting bearboo server")
		if err := app.Listen(cfg.Addr); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	cancel()
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server stopped")
}
