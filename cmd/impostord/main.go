// Command impostord runs the local development game server. It serves the
// same REST and WebSocket surface as the production backend and optionally
// bridges NATS scenario subjects into running games.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/turingarcade/impostor/internal/config"
	"github.com/turingarcade/impostor/internal/harness"
)

func main() {
	configPath := flag.String("config", "impostor.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	server := harness.NewServer(clockwork.NewRealClock(), harness.Config{
		RoundLength: cfg.Harness.RoundLength,
	})

	if cfg.Harness.NATSURL != "" {
		bridge, err := harness.NewBridge(server, cfg.Harness.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start scenario bridge")
		}
		defer bridge.Close()
	}

	httpServer := &http.Server{
		Addr:    cfg.Harness.Addr,
		Handler: server.Handler(),
	}

	go func() {
		log.Info().Str("addr", cfg.Harness.Addr).Msg("dev game server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
