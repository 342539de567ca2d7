package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	football "football-live-tracker"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		competition string
		interval    time.Duration
		channels    string
		maxPolls    int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the live dashboard workflow for a competition",
		Long: `Start the dashboard workflow that polls football-data.org for a competition,
keeps the live scores and table queryable, and notifies on every goal.
Starting a competition that is already tracked returns the running workflow.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := football.NewLogger()

			cfg, err := football.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				cfg.PollInterval = interval
			}
			if cmd.Flags().Changed("channels") {
				cfg.Channels = football.ParseChannels(channels)
				if err := football.ValidateChannels(cfg.Channels); err != nil {
					return fmt.Errorf("--channels: %w", err)
				}
			}

			req := cfg.DashboardRequest(strings.ToUpper(competition))
			if maxPolls > 0 {
				req.MaxPolls = maxPolls
			}

			clientOptions, err := football.GetClientOptions(cfg, logger)
			if err != nil {
				return err
			}
			c, err := client.Dial(clientOptions)
			if err != nil {
				return fmt.Errorf("unable to create client: %w", err)
			}
			defer c.Close()

			options := client.StartWorkflowOptions{
				ID:        football.DashboardWorkflowID(req.Competition),
				TaskQueue: cfg.TaskQueue,
			}

			we, err := c.ExecuteWorkflow(context.Background(), options, football.DashboardWorkflow, req)
			if err != nil {
				return fmt.Errorf("unable to execute workflow: %w", err)
			}
			logger.Info("Started workflow", "WorkflowID", we.GetID(), "RunID", we.GetRunID(),
				"Competition", req.Competition, "PollInterval", req.PollInterval)
			return nil
		},
	}

	cmd.Flags().StringVarP(&competition, "competition", "c", "", "competition code, e.g. CL, PL, BL1 (default from COMPETITION)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", football.DefaultPollInterval, "poll interval")
	cmd.Flags().StringVar(&channels, "channels", "", "comma-separated notification channels: logger, ntfy, slack")
	cmd.Flags().IntVar(&maxPolls, "max-polls", 0, fmt.Sprintf("polls per run before continuing as new (default %d)", football.DefaultMaxPolls))
	return cmd
}
