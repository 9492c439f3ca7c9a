package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nDmitry/tgsnap/internal/api/rest"
	"github.com/nDmitry/tgsnap/internal/app"
	"github.com/nDmitry/tgsnap/internal/feed"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := app.Logger()

	cfg, err := loadConfig()

	if err != nil {
		return err
	}

	if err := app.InitSentry(cfg.SentryDSN, Version); err != nil {
		logger.Warn("Sentry is disabled", "error", err)
	}

	defer app.FlushSentry()

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received first shutdown signal, starting graceful shutdown...")
		cancel()

		// If we receive a second signal, exit immediately
		<-sigChan
		logger.Info("Received second shutdown signal, exiting immediately...")
		os.Exit(1)
	}()

	s, err := build(ctx, cfg, true)

	if err != nil {
		return err
	}

	defer s.cache.Close()

	if s.memory != nil {
		go s.memory.Run(ctx, cfg.RateLimitSweepInterval)
	}

	server := rest.NewServer(s.extractor, &feed.Generator{}, cfg.Port)

	if err := server.Run(ctx); err != nil {
		return err
	}

	s.extractor.Wait()

	return nil
}
