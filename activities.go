package football

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Error types the workflow never retries
const (
	ErrTypeUnauthorized = "Unauthorized"
	ErrTypeNoAPIKey     = "NoAPIKey"
)

// Activities holds the dependencies shared by every activity the worker runs.
// The APIClient's rate limiter is shared too, so all dashboards on one worker
// stay inside the same upstream quota.
type Activities struct {
	API      *APIClient
	Notifier *Notifier
}

// FetchMatches gets the current matches snapshot for a competition
func (a *Activities) FetchMatches(ctx context.Context, competition string) (*MatchesResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching matches from football-data", "competition", competition)

	resp, err := a.API.Matches(ctx, competition)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	logger.Info("Fetched matches", "competition", competition, "count", len(resp.Matches))
	return resp, nil
}

// FetchStandings gets the competition's league tables
func (a *Activities) FetchStandings(ctx context.Context, competition string) (*StandingsResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching standings from football-data", "competition", competition)

	resp, err := a.API.Standings(ctx, competition)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	return resp, nil
}

// SendNotification delivers one notification on one channel.
func (a *Activities) SendNotification(ctx context.Context, req SendRequest) error {
	logger := activity.GetLogger(ctx)

	if err := a.Notifier.Send(ctx, req.Channel, req.Notification); err != nil {
		logger.Warn("Notification not delivered", "channel", req.Channel, "error", err)
		if errors.Is(err, ErrUnknownChannel) {
			return temporal.NewNonRetryableApplicationError(err.Error(), "UnknownChannel", err)
		}
		return err
	}

	logger.Info("Notification sent", "channel", req.Channel, "title", req.Notification.Title)
	return nil
}

func classifyAPIError(err error) error {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Unauthorized():
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnauthorized, err)
	case errors.Is(err, ErrNoAPIKey):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoAPIKey, err)
	}
	return fmt.Errorf("football-data request failed: %w", err)
}
