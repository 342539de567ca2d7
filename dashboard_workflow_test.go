package football

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

// snapshotSequence returns a FetchMatches mock that serves the given
// snapshots in order and repeats the last one.
func snapshotSequence(snapshots ...[]Match) func(context.Context, string) (*MatchesResponse, error) {
	var mu sync.Mutex
	calls := 0
	return func(ctx context.Context, competition string) (*MatchesResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		i := calls
		if i >= len(snapshots) {
			i = len(snapshots) - 1
		}
		calls++
		if snapshots[i] == nil {
			return nil, temporal.NewNonRetryableApplicationError("upstream unavailable", "Upstream", nil)
		}
		return &MatchesResponse{
			Competition: Competition{Name: "UEFA Champions League", Code: competition},
			Matches:     snapshots[i],
		}, nil
	}
}

type sentNotifications struct {
	mu       sync.Mutex
	requests []SendRequest
}

func (s *sentNotifications) record(ctx context.Context, req SendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

func (s *sentNotifications) all() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.requests...)
}

func testStandings() *StandingsResponse {
	return &StandingsResponse{
		Competition: Competition{Name: "UEFA Champions League", Code: "CL"},
		Standings: []Standing{{
			Type:  "TOTAL",
			Table: []TableEntry{{Position: 1, Team: Team{Name: "Real Madrid CF"}, Points: 9}},
		}},
	}
}

func queryDashboard(t *testing.T, env *testsuite.TestWorkflowEnvironment) DashboardState {
	encodedValue, err := env.QueryWorkflow(DashboardQuery)
	require.NoError(t, err)
	var state DashboardState
	require.NoError(t, encodedValue.Get(&state))
	return state
}

// requireContinueAsNew returns the request the next run starts with.
func requireContinueAsNew(t *testing.T, err error) DashboardRequest {
	var canErr *workflow.ContinueAsNewError
	require.True(t, errors.As(err, &canErr), "expected continue-as-new, got %v", err)

	var next DashboardRequest
	require.NoError(t, converter.GetDefaultDataConverter().FromPayloads(canErr.Input, &next))
	return next
}

func TestDashboardWorkflow_NotifiesOncePerGoal(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	sent := &sentNotifications{}
	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusInPlay, intPtr(0), intPtr(0))},
		[]Match{testMatch(1, StatusInPlay, intPtr(1), intPtr(0))},
		[]Match{testMatch(1, StatusInPlay, intPtr(1), intPtr(0))},
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(testStandings(), nil)
	env.OnActivity(a.SendNotification, mock.Anything, mock.Anything).Return(sent.record)

	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{
		Competition: "cl",
		Channels:    []string{ChannelLogger, ChannelNtfy},
		MaxPolls:    3,
	})

	require.True(t, env.IsWorkflowCompleted())
	requireContinueAsNew(t, env.GetWorkflowError())

	requests := sent.all()
	require.Len(t, requests, 2)
	channels := []string{requests[0].Channel, requests[1].Channel}
	assert.ElementsMatch(t, []string{ChannelLogger, ChannelNtfy}, channels)
	assert.Equal(t, "UEFA Champions League LIVE", requests[0].Notification.Title)
	assert.Equal(t, "⚽ GOAL! Real Madrid CF 1:0 FC Bayern München (67')", requests[0].Notification.Message)

	state := queryDashboard(t, env)
	assert.Equal(t, "CL", state.Competition)
	assert.Equal(t, 3, state.Polls)
	assert.Empty(t, state.LastError)
	require.Len(t, state.RecentGoals, 1)
	assert.Equal(t, 1, state.RecentGoals[0].HomeGoals)
	assert.False(t, state.RecentGoals[0].Timestamp.IsZero())
	require.NotNil(t, state.Standings)
	assert.Equal(t, 9, state.Standings.Standings[0].Table[0].Points)
}

func TestDashboardWorkflow_FailedFetchKeepsPreviousSnapshot(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	sent := &sentNotifications{}
	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusInPlay, intPtr(0), intPtr(0))},
		nil,
		[]Match{testMatch(1, StatusInPlay, intPtr(0), intPtr(1))},
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(nil, temporal.NewNonRetryableApplicationError("no table", "Upstream", nil))
	env.OnActivity(a.SendNotification, mock.Anything, mock.Anything).Return(sent.record)

	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{Competition: "CL", MaxPolls: 3})

	require.True(t, env.IsWorkflowCompleted())
	requireContinueAsNew(t, env.GetWorkflowError())

	requests := sent.all()
	require.Len(t, requests, 1)
	assert.Equal(t, ChannelLogger, requests[0].Channel)
	assert.Contains(t, requests[0].Notification.Message, "0:1")

	state := queryDashboard(t, env)
	assert.Empty(t, state.LastError)
	assert.Nil(t, state.Standings)
	require.Len(t, state.Matches, 1)
}

func TestDashboardWorkflow_RecordsLastError(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusInPlay, intPtr(0), intPtr(0))},
		nil,
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(testStandings(), nil)

	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{Competition: "CL", MaxPolls: 2})

	require.True(t, env.IsWorkflowCompleted())
	requireContinueAsNew(t, env.GetWorkflowError())

	state := queryDashboard(t, env)
	assert.Contains(t, state.LastError, "upstream unavailable")
	require.Len(t, state.Matches, 1)
	assert.Equal(t, 0, state.Matches[0].HomeGoals())
}

func TestDashboardWorkflow_PreviousSnapshotSurvivesContinueAsNew(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	sent := &sentNotifications{}
	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusInPlay, intPtr(2), intPtr(0))},
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(testStandings(), nil)
	env.OnActivity(a.SendNotification, mock.Anything, mock.Anything).Return(sent.record)

	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{
		Competition: "CL",
		MaxPolls:    1,
		Previous:    []Match{testMatch(1, StatusInPlay, intPtr(1), intPtr(0))},
	})

	require.True(t, env.IsWorkflowCompleted())
	next := requireContinueAsNew(t, env.GetWorkflowError())
	require.Len(t, sent.all(), 1)
	assert.Contains(t, sent.all()[0].Notification.Message, "2:0")

	require.Len(t, next.Previous, 1)
	assert.Equal(t, 2, next.Previous[0].HomeGoals())
	require.Len(t, next.RecentGoals, 1)
	assert.Equal(t, 2, next.RecentGoals[0].HomeGoals)
}

func TestDashboardWorkflow_RecentGoalsSurviveContinueAsNew(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusInPlay, intPtr(2), intPtr(1))},
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(testStandings(), nil)
	env.OnActivity(a.SendNotification, mock.Anything, mock.Anything).Return(nil)

	earlier := GoalEvent{MatchID: 1, HomeTeam: "Real Madrid CF", AwayTeam: "FC Bayern München", HomeGoals: 1, Minute: "12", Kind: KindGoal}
	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{
		Competition: "CL",
		MaxPolls:    1,
		Previous:    []Match{testMatch(1, StatusInPlay, intPtr(1), intPtr(1))},
		RecentGoals: []GoalEvent{earlier},
	})

	require.True(t, env.IsWorkflowCompleted())
	next := requireContinueAsNew(t, env.GetWorkflowError())

	state := queryDashboard(t, env)
	require.Len(t, state.RecentGoals, 2)
	assert.Equal(t, "12", state.RecentGoals[0].Minute)
	assert.Equal(t, 2, state.RecentGoals[1].HomeGoals)

	require.Len(t, next.RecentGoals, 2)
	assert.Equal(t, "12", next.RecentGoals[0].Minute)
	assert.Equal(t, 2, next.RecentGoals[1].HomeGoals)
}

func TestDefaultMaxPolls_KeepsHistorySmall(t *testing.T) {
	// A full 380-match league season
	season := make([]Match, 380)
	for i := range season {
		season[i] = testMatch(500000+i, StatusFinished, intPtr(2), intPtr(1))
		season[i].UTCDate = APITime{Time: time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC)}
		season[i].Matchday = 1 + i/10
		season[i].Stage = "REGULAR_SEASON"
		season[i].Score.HalfTime = Goals{Home: intPtr(1), Away: intPtr(0)}
	}
	payload, err := json.Marshal(MatchesResponse{Matches: season})
	require.NoError(t, err)

	// History warns at 10MB; leave room for standings and notifications
	assert.Less(t, len(payload)*DefaultMaxPolls, 5*1024*1024)
}

func TestDashboardWorkflow_RefreshSignalPollsImmediately(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusTimed, nil, nil)},
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(testStandings(), nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(RefreshSignal, nil)
	}, time.Minute)

	start := env.Now()
	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{
		Competition:  "CL",
		PollInterval: 10 * time.Minute,
		MaxPolls:     2,
	})

	require.True(t, env.IsWorkflowCompleted())
	requireContinueAsNew(t, env.GetWorkflowError())
	assert.Less(t, env.Now().Sub(start), 5*time.Minute)
}

func TestDashboardWorkflow_Cancel(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	env.OnActivity(a.FetchMatches, mock.Anything, "CL").Return(snapshotSequence(
		[]Match{testMatch(1, StatusInPlay, intPtr(0), intPtr(0))},
	))
	env.OnActivity(a.FetchStandings, mock.Anything, "CL").Return(testStandings(), nil)

	env.RegisterDelayedCallback(func() {
		env.CancelWorkflow()
	}, 2*time.Minute+time.Second)

	env.ExecuteWorkflow(DashboardWorkflow, DashboardRequest{Competition: "CL", MaxPolls: 1000})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.True(t, temporal.IsCanceledError(err))
}

func TestDashboardRequest_WithDefaults(t *testing.T) {
	req := DashboardRequest{}.withDefaults()
	assert.Equal(t, DefaultCompetition, req.Competition)
	assert.Equal(t, DefaultPollInterval, req.PollInterval)
	assert.Equal(t, DefaultMaxPolls, req.MaxPolls)
	assert.Equal(t, []string{ChannelLogger}, req.Channels)

	req = DashboardRequest{Competition: " pl ", PollInterval: time.Minute, MaxPolls: 5, Channels: []string{ChannelSlack}}.withDefaults()
	assert.Equal(t, "PL", req.Competition)
	assert.Equal(t, time.Minute, req.PollInterval)
	assert.Equal(t, 5, req.MaxPolls)
	assert.Equal(t, []string{ChannelSlack}, req.Channels)
}

func TestDashboardWorkflowID(t *testing.T) {
	assert.Equal(t, "dashboard-CL", DashboardWorkflowID(" cl"))
}

func TestAppendRecentGoals(t *testing.T) {
	var recent []GoalEvent
	for i := 0; i < recentGoalsLimit+5; i++ {
		recent = appendRecentGoals(recent, []GoalEvent{{MatchID: i}})
	}
	require.Len(t, recent, recentGoalsLimit)
	assert.Equal(t, 5, recent[0].MatchID)
	assert.Equal(t, recentGoalsLimit+4, recent[len(recent)-1].MatchID)
}
