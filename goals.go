package football

import "fmt"

// DetectGoals compares two successive matches snapshots and returns one
// GoalEvent for every live match whose full-time score moved in between.
//
// The first poll has nothing to compare against, so a nil or empty previous
// snapshot yields no events. Matches missing from the previous snapshot are
// skipped. A null score counts as zero goals, so kickoff (null -> 0:0) is not
// reported as a change.
func DetectGoals(previous, current []Match) []GoalEvent {
	if len(previous) == 0 {
		return nil
	}

	byID := make(map[int]Match, len(previous))
	for _, m := range previous {
		byID[m.ID] = m
	}

	var events []GoalEvent
	for _, cur := range current {
		if !cur.IsLive() {
			continue
		}
		prev, ok := byID[cur.ID]
		if !ok {
			continue
		}

		home, away := cur.HomeGoals(), cur.AwayGoals()
		prevHome, prevAway := prev.HomeGoals(), prev.AwayGoals()
		if home == prevHome && away == prevAway {
			continue
		}

		events = append(events, GoalEvent{
			MatchID:   cur.ID,
			HomeTeam:  cur.HomeTeam.Name,
			AwayTeam:  cur.AwayTeam.Name,
			HomeGoals: home,
			AwayGoals: away,
			PrevHome:  prevHome,
			PrevAway:  prevAway,
			Minute:    cur.Minute.String(),
			Kind:      changeKind(home-prevHome, away-prevAway),
		})
	}
	return events
}

// A change is a correction only when no side gained a goal.
func changeKind(homeDelta, awayDelta int) string {
	if homeDelta > 0 || awayDelta > 0 {
		return KindGoal
	}
	return KindCorrection
}

// ScoreText formats the score the way the notification relays show it.
func (e GoalEvent) ScoreText() string {
	return fmt.Sprintf("%d:%d", e.HomeGoals, e.AwayGoals)
}
