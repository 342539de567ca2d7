package football

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	DashboardQuery = "dashboard"
	RefreshSignal  = "refresh"

	DefaultCompetition  = "CL"
	DefaultPollInterval = 30 * time.Second
	// Every poll records a full-season matches payload in history (a 380-match
	// league is about 200KB), so a run stays a few MB below the history size warning.
	DefaultMaxPolls = 20

	recentGoalsLimit = 20
)

// DashboardWorkflowID is the workflow ID used for a competition's dashboard.
// One dashboard runs per competition.
func DashboardWorkflowID(competition string) string {
	return "dashboard-" + strings.ToUpper(strings.TrimSpace(competition))
}

func (r DashboardRequest) withDefaults() DashboardRequest {
	r.Competition = strings.ToUpper(strings.TrimSpace(r.Competition))
	if r.Competition == "" {
		r.Competition = DefaultCompetition
	}
	if r.PollInterval <= 0 {
		r.PollInterval = DefaultPollInterval
	}
	if r.MaxPolls <= 0 {
		r.MaxPolls = DefaultMaxPolls
	}
	if len(r.Channels) == 0 {
		r.Channels = []string{ChannelLogger}
	}
	return r
}

// DashboardWorkflow polls a competition's matches and standings on a timer,
// keeps the latest snapshot queryable for the UI, and sends a notification on
// every channel whenever a live match's score changes between two polls.
func DashboardWorkflow(ctx workflow.Context, req DashboardRequest) (string, error) {
	req = req.withDefaults()
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting Dashboard Workflow", "competition", req.Competition, "pollInterval", req.PollInterval, "channels", req.Channels)

	state := DashboardState{Competition: req.Competition, RecentGoals: req.RecentGoals}
	previous := req.Previous

	// Query handler for UI - return the latest snapshot
	err := workflow.SetQueryHandler(ctx, DashboardQuery, func() (DashboardState, error) {
		return state, nil
	})
	if err != nil {
		logger.Error("Failed to set query handler", "error", err)
		return "", err
	}

	// The client already retries rate limits and network errors; one extra attempt covers a lost worker.
	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        2,
			NonRetryableErrorTypes: []string{ErrTypeUnauthorized, ErrTypeNoAPIKey},
		},
	})
	// Notifications are best effort: a single attempt, never retried
	notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	refreshCh := workflow.GetSignalChannel(ctx, RefreshSignal)
	competitionName := req.Competition
	var a *Activities

	for {
		// Fetch both endpoints concurrently
		matchesFuture := workflow.ExecuteActivity(fetchCtx, a.FetchMatches, req.Competition)
		standingsFuture := workflow.ExecuteActivity(fetchCtx, a.FetchStandings, req.Competition)

		var matches MatchesResponse
		matchesErr := matchesFuture.Get(ctx, &matches)
		var standings StandingsResponse
		standingsErr := standingsFuture.Get(ctx, &standings)

		if ctx.Err() != nil {
			return finalSummary(state), ctx.Err()
		}

		state.Polls++
		state.UpdatedAt = workflow.Now(ctx)

		if standingsErr != nil {
			logger.Error("Failed to fetch standings", "competition", req.Competition, "error", standingsErr)
		} else {
			state.Standings = &standings
			if standings.Competition.Name != "" {
				competitionName = standings.Competition.Name
			}
		}

		if matchesErr != nil {
			// Keep the previous snapshot so the next successful poll still diffs against it
			logger.Error("Failed to fetch matches", "competition", req.Competition, "error", matchesErr)
			state.LastError = matchesErr.Error()
		} else {
			state.LastError = ""
			if matches.Competition.Name != "" {
				competitionName = matches.Competition.Name
			}

			events := DetectGoals(previous, matches.Matches)
			for i := range events {
				events[i].Timestamp = state.UpdatedAt
			}
			if len(events) > 0 {
				logger.Info("Score change detected", "competition", req.Competition, "count", len(events))
				sendGoalNotifications(notifyCtx, req.Channels, competitionName, events)
				state.RecentGoals = appendRecentGoals(state.RecentGoals, events)
			}

			previous = matches.Matches
			state.Matches = matches.Matches
		}

		if state.Polls >= req.MaxPolls {
			break
		}

		// Wait for the next poll, or poll right away when asked to refresh
		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		timer := workflow.NewTimer(timerCtx, req.PollInterval)
		selector := workflow.NewSelector(ctx)
		selector.AddFuture(timer, func(f workflow.Future) {
			// Timer fired, time to poll again
		})
		selector.AddReceive(refreshCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, nil)
			logger.Info("Refresh requested", "competition", req.Competition)
		})
		selector.Select(ctx)
		cancelTimer()

		if ctx.Err() != nil {
			logger.Info("Dashboard workflow cancelled", "competition", req.Competition)
			return finalSummary(state), ctx.Err()
		}
	}

	// Drop any refresh that arrived with the last poll; the next run polls immediately anyway
	for refreshCh.ReceiveAsync(nil) {
	}

	logger.Info("Continuing dashboard as new", "competition", req.Competition, "polls", state.Polls)
	next := req
	next.Previous = previous
	next.RecentGoals = state.RecentGoals
	return "", workflow.NewContinueAsNewError(ctx, DashboardWorkflow, next)
}

// sendGoalNotifications fans every event out to every channel. Sends run
// concurrently and failures are only logged.
func sendGoalNotifications(ctx workflow.Context, channels []string, competitionName string, events []GoalEvent) {
	logger := workflow.GetLogger(ctx)
	var a *Activities

	type pending struct {
		channel string
		future  workflow.Future
	}
	var sends []pending
	for _, event := range events {
		notification := BuildGoalNotification(competitionName, event)
		for _, channel := range channels {
			f := workflow.ExecuteActivity(ctx, a.SendNotification, SendRequest{Channel: channel, Notification: notification})
			sends = append(sends, pending{channel: channel, future: f})
		}
	}

	for _, s := range sends {
		if err := s.future.Get(ctx, nil); err != nil {
			logger.Error("Failed to send notification", "channel", s.channel, "error", err)
		}
	}
}

func appendRecentGoals(recent, events []GoalEvent) []GoalEvent {
	recent = append(recent, events...)
	if len(recent) > recentGoalsLimit {
		recent = recent[len(recent)-recentGoalsLimit:]
	}
	return recent
}

func finalSummary(state DashboardState) string {
	return fmt.Sprintf("%s dashboard stopped after %d polls, %d recent goals", state.Competition, state.Polls, len(state.RecentGoals))
}
