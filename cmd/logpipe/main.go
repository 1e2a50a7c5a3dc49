package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/logpipe-io/logpipe/internal/config"
	"github.com/logpipe-io/logpipe/internal/server"
)

func main() {
	// Best effort: a missing .env is fine, config may come from the shell.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if cfg.Primary.Env == "production" {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	logger.Info().
		Str("port", cfg.Server.Port).
		Str("env", cfg.Primary.Env).
		Msg("starting logpipe")
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
