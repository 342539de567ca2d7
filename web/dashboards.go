package web

import (
	"context"
	"errors"
	"fmt"

	football "football-live-tracker"

	"go.temporal.io/sdk/client"
)

var ErrNotConnected = errors.New("temporal server not connected")

// DashboardReader returns the latest state of a competition's dashboard.
type DashboardReader interface {
	Dashboard(ctx context.Context, competition string) (football.DashboardState, error)
}

// temporalReader reads dashboards through the workflow's "dashboard" query.
type temporalReader struct {
	client client.Client
}

func (r temporalReader) Dashboard(ctx context.Context, competition string) (football.DashboardState, error) {
	var state football.DashboardState
	if r.client == nil {
		return state, ErrNotConnected
	}

	workflowID := football.DashboardWorkflowID(competition)
	result, err := r.client.QueryWorkflow(ctx, workflowID, "", football.DashboardQuery)
	if err != nil {
		return state, fmt.Errorf("failed to query workflow %s: %w", workflowID, err)
	}
	if err := result.Get(&state); err != nil {
		return state, fmt.Errorf("failed to get query result for workflow %s: %w", workflowID, err)
	}
	return state, nil
}
