package football

import "time"

// football-data.org v4 response models
type MatchesResponse struct {
	Competition Competition `json:"competition"`
	Matches     []Match     `json:"matches"`
}

type Match struct {
	ID       int         `json:"id"`
	UTCDate  APITime     `json:"utcDate"`
	Status   string      `json:"status"`
	Minute   MatchMinute `json:"minute"`
	Matchday int         `json:"matchday"`
	Stage    string      `json:"stage"`
	Group    string      `json:"group"`
	HomeTeam Team        `json:"homeTeam"`
	AwayTeam Team        `json:"awayTeam"`
	Score    Score       `json:"score"`
}

type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

type Score struct {
	Winner   string `json:"winner"`
	FullTime Goals  `json:"fullTime"`
	HalfTime Goals  `json:"halfTime"`
}

// Goals is null on both sides until the match kicks off.
type Goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type Competition struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type StandingsResponse struct {
	Competition Competition `json:"competition"`
	Standings   []Standing  `json:"standings"`
}

type Standing struct {
	Stage string       `json:"stage"`
	Type  string       `json:"type"`
	Group string       `json:"group"`
	Table []TableEntry `json:"table"`
}

type TableEntry struct {
	Position       int  `json:"position"`
	Team           Team `json:"team"`
	PlayedGames    int  `json:"playedGames"`
	Won            int  `json:"won"`
	Draw           int  `json:"draw"`
	Lost           int  `json:"lost"`
	Points         int  `json:"points"`
	GoalsFor       int  `json:"goalsFor"`
	GoalsAgainst   int  `json:"goalsAgainst"`
	GoalDifference int  `json:"goalDifference"`
}

// Match statuses reported by the API
const (
	StatusScheduled       = "SCHEDULED"
	StatusTimed           = "TIMED"
	StatusInPlay          = "IN_PLAY"
	StatusPaused          = "PAUSED"
	StatusExtraTime       = "EXTRA_TIME"
	StatusPenaltyShootout = "PENALTY_SHOOTOUT"
	StatusFinished        = "FINISHED"
	StatusSuspended       = "SUSPENDED"
	StatusPostponed       = "POSTPONED"
	StatusCancelled       = "CANCELLED"
	StatusAwarded         = "AWARDED"
)

// IsLive reports whether the ball can still change the score.
func (m Match) IsLive() bool {
	switch m.Status {
	case StatusInPlay, StatusPaused, StatusExtraTime, StatusPenaltyShootout:
		return true
	}
	return false
}

// IsUpcoming reports whether the match has a kickoff but has not started.
func (m Match) IsUpcoming() bool {
	return m.Status == StatusTimed || m.Status == StatusScheduled
}

// HomeGoals returns the full-time home count, treating null as zero.
func (m Match) HomeGoals() int {
	return goalCount(m.Score.FullTime.Home)
}

// AwayGoals returns the full-time away count, treating null as zero.
func (m Match) AwayGoals() int {
	return goalCount(m.Score.FullTime.Away)
}

func goalCount(g *int) int {
	if g == nil {
		return 0
	}
	return *g
}

// GoalEvent represents one detected score change between two polls
type GoalEvent struct {
	MatchID   int
	HomeTeam  string
	AwayTeam  string
	HomeGoals int
	AwayGoals int
	PrevHome  int
	PrevAway  int
	Minute    string
	Kind      string
	Timestamp time.Time
}

// Kinds of GoalEvent
const (
	KindGoal       = "goal"
	KindCorrection = "correction"
)

// Notification is the channel-independent message sent for a GoalEvent
type Notification struct {
	Title    string
	Message  string
	Priority string
	Tags     []string
}

// SendRequest asks the SendNotification activity to deliver one notification on one channel
type SendRequest struct {
	Channel      string
	Notification Notification
}

// DashboardRequest starts (or continues) a dashboard workflow for a competition
type DashboardRequest struct {
	Competition  string        `json:"competition"`
	PollInterval time.Duration `json:"pollInterval"`
	Channels     []string      `json:"channels"`
	MaxPolls     int           `json:"maxPolls"`
	// Previous and RecentGoals are carried across continue-as-new
	Previous    []Match     `json:"previous,omitempty"`
	RecentGoals []GoalEvent `json:"recentGoals,omitempty"`
}

// DashboardState is what the "dashboard" query returns
type DashboardState struct {
	Competition string
	UpdatedAt   time.Time
	Matches     []Match
	Standings   *StandingsResponse
	RecentGoals []GoalEvent
	LastError   string
	Polls       int
}
