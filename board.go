package football

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	maxTeamNameLen   = 20
	truncatedNameLen = 17
)

// Board is the rendered shape of a DashboardState: what the page and the
// websocket push show.
type Board struct {
	Competition string        `json:"competition"`
	UpdatedAt   string        `json:"updatedAt"`
	Live        []LiveCard    `json:"live"`
	Today       []UpcomingRow `json:"today"`
	Standings   []StandingRow `json:"standings"`
	RecentGoals []string      `json:"recentGoals"`
	Error       string        `json:"error,omitempty"`
	// NoGamesToday is set when there is neither a live nor a scheduled game today
	NoGamesToday       bool `json:"noGamesToday"`
	StandingsAvailable bool `json:"standingsAvailable"`
}

type LiveCard struct {
	MatchID   int    `json:"matchId"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	HomeGoals int    `json:"homeGoals"`
	AwayGoals int    `json:"awayGoals"`
	Minute    string `json:"minute"`
	Status    string `json:"status"`
}

type UpcomingRow struct {
	MatchID  int    `json:"matchId"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	Kickoff  string `json:"kickoff"`
}

type StandingRow struct {
	Position int    `json:"position"`
	Team     string `json:"team"`
	Played   int    `json:"played"`
	Won      int    `json:"won"`
	Draw     int    `json:"draw"`
	Lost     int    `json:"lost"`
	Goals    string `json:"goals"`
	Points   int    `json:"points"`
}

// BuildBoard shapes a DashboardState for display. "Today" is the calendar day
// of now in loc.
func BuildBoard(state DashboardState, now time.Time, loc *time.Location) Board {
	if loc == nil {
		loc = time.Local
	}
	board := Board{
		Competition: state.Competition,
		Error:       state.LastError,
	}
	if !state.UpdatedAt.IsZero() {
		board.UpdatedAt = state.UpdatedAt.In(loc).Format("15:04:05")
	}

	today := now.In(loc).Format(time.DateOnly)
	for _, m := range state.Matches {
		switch {
		case m.IsLive():
			board.Live = append(board.Live, LiveCard{
				MatchID:   m.ID,
				HomeTeam:  m.HomeTeam.Name,
				AwayTeam:  m.AwayTeam.Name,
				HomeGoals: m.HomeGoals(),
				AwayGoals: m.AwayGoals(),
				Minute:    m.Minute.String(),
				Status:    m.Status,
			})
		case m.IsUpcoming() && !m.UTCDate.IsZero():
			kickoff := m.UTCDate.In(loc)
			if kickoff.Format(time.DateOnly) != today {
				continue
			}
			board.Today = append(board.Today, UpcomingRow{
				MatchID:  m.ID,
				HomeTeam: m.HomeTeam.Name,
				AwayTeam: m.AwayTeam.Name,
				Kickoff:  kickoff.Format("15:04"),
			})
		}
	}
	board.NoGamesToday = len(board.Live) == 0 && len(board.Today) == 0

	// The first table is the overall one
	if state.Standings != nil && len(state.Standings.Standings) > 0 {
		board.StandingsAvailable = true
		for _, e := range state.Standings.Standings[0].Table {
			board.Standings = append(board.Standings, StandingRow{
				Position: e.Position,
				Team:     TruncateTeamName(e.Team.Name),
				Played:   e.PlayedGames,
				Won:      e.Won,
				Draw:     e.Draw,
				Lost:     e.Lost,
				Goals:    fmt.Sprintf("%d:%d", e.GoalsFor, e.GoalsAgainst),
				Points:   e.Points,
			})
		}
	}

	for i := len(state.RecentGoals) - 1; i >= 0; i-- {
		notification := BuildGoalNotification(state.Competition, state.RecentGoals[i])
		board.RecentGoals = append(board.RecentGoals, notification.Message)
	}

	return board
}

// TruncateTeamName shortens names that would wrap on a phone-width table.
func TruncateTeamName(name string) string {
	if utf8.RuneCountInString(name) <= maxTeamNameLen {
		return name
	}
	runes := []rune(name)
	return string(runes[:truncatedNameLen]) + "..."
}
