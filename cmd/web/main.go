package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	football "football-live-tracker"
	"football-live-tracker/web"

	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := football.NewLogger()

	cfg, err := football.LoadConfig()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create Temporal client
	var temporalClient client.Client
	clientOptions, err := football.GetClientOptions(cfg, logger)
	if err == nil {
		temporalClient, err = client.Dial(clientOptions)
	}
	if err != nil {
		logger.Warn("Unable to create Temporal client, the UI runs in demo mode", "error", err)
		temporalClient = nil
	} else {
		defer temporalClient.Close()
		logger.Info("Successfully connected to Temporal server", "host", cfg.TemporalHost)
	}

	// Create web handlers with Temporal client (can be nil)
	handlers := web.NewHandlers(temporalClient, cfg, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return handlers.Hub().Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Starting web server", "port", cfg.Port, "url", "http://localhost:"+cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Web server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Web server stopped")
}
