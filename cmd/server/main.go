package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribble-rush/internal/config"
	"scribble-rush/internal/db"
	"scribble-rush/internal/game"
	"scribble-rush/internal/logger"
	"scribble-rush/internal/server"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	envErr := config.LoadDotEnv(".env")
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("failed to load .env")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	hub := server.NewHub(log.With().Str("component", "hub").Logger())
	words := game.NewGormTranslationSource(conn)
	registry := game.NewRegistry(game.Deps{
		Repo:        game.NewPostgresRepository(conn),
		Words:       game.NewWordGateway(words, log),
		Ledger:      game.NewGormLedger(conn, cfg.StartingCoins),
		Broadcaster: hub,
		Rules:       game.RulesFromConfig(cfg),
		Defaults:    game.RoomDefaultsFromConfig(cfg),
		Logger:      log.With().Str("component", "engine").Logger(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := registry.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("session restore failed")
	}

	srv := server.New(registry, hub, words, cfg, log)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("scribble-rush server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		registry.Shutdown()
		return err
	})
	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}
