package main

import (
	"os"

	football "football-live-tracker"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	logger := football.NewLogger()

	cfg, err := football.LoadConfig()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		logger.Warn("FOOTBALL_API_KEY is not set, every fetch will fail")
	}

	clientOptions, err := football.GetClientOptions(cfg, logger)
	if err != nil {
		logger.Error("Unable to build Temporal client options", "error", err)
		os.Exit(1)
	}

	// Create Temporal client
	c, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("Unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	// Create worker
	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflow(football.DashboardWorkflow)

	// Register activities
	w.RegisterActivity(cfg.Activities(logger))

	// Start worker
	logger.Info("Starting Temporal worker for football live tracker",
		"TaskQueue", cfg.TaskQueue, "Channels", cfg.Channels)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Unable to start worker", "error", err)
		os.Exit(1)
	}
}
