package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"shelfscan/internal/app"
	"shelfscan/internal/config"
	"shelfscan/internal/library"
	"shelfscan/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server error", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	target := cfg.Library.Path
	if cfg.Library.Backend == config.BackendPostgres {
		target = library.RedactDSN(cfg.Library.DatabaseDSN)
	}
	logger.Info("opening library", slog.String("backend", cfg.Library.Backend), slog.String("target", target))

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx, cfg.Server.Addr)
}
