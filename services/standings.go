package services

import (
	"sort"

	"github.com/Dorofeev01/matchday-system/models"
)

const (
	pointsPerWin  = 3
	pointsPerDraw = 1
)

// ComputeStandings derives the league table from completed matches.
// Only completed matches with both teams known contribute. The sort
// order is points, then goal difference, then goals for, all
// descending, with team name as the final alphabetical tiebreak; ranks
// are ordinal after sorting. Pure and deterministic, so a table can be
// recomputed from scratch at any time.
func ComputeStandings(teamIDs []int, teamNames map[int]string, matches []*models.Match) []models.Standing {
	rows := make(map[int]*models.Standing, len(teamIDs))
	for _, teamID := range teamIDs {
		rows[teamID] = &models.Standing{
			TeamID:   teamID,
			TeamName: teamNames[teamID],
		}
	}

	for _, match := range matches {
		if match.Status != models.MatchStatusCompleted {
			continue
		}
		if match.HomeTeamID == nil || match.AwayTeamID == nil || match.HomeScore == nil || match.AwayScore == nil {
			continue
		}
		home, homeOK := rows[*match.HomeTeamID]
		away, awayOK := rows[*match.AwayTeamID]
		if !homeOK || !awayOK {
			continue
		}

		homeScore, awayScore := *match.HomeScore, *match.AwayScore
		home.MatchesPlayed++
		away.MatchesPlayed++
		home.GoalsFor += homeScore
		home.GoalsAgainst += awayScore
		away.GoalsFor += awayScore
		away.GoalsAgainst += homeScore

		switch {
		case homeScore > awayScore:
			home.Wins++
			away.Losses++
		case awayScore > homeScore:
			away.Wins++
			home.Losses++
		default:
			home.Draws++
			away.Draws++
		}
	}

	table := make([]models.Standing, 0, len(rows))
	for _, row := range rows {
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
		row.Points = row.Wins*pointsPerWin + row.Draws*pointsPerDraw
		table = append(table, *row)
	}

	sort.Slice(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamName < b.TeamName
	})
	for i := range table {
		table[i].Rank = i + 1
	}
	return table
}

// ComputeLeaderboard derives the per-player leaderboard for one event
// type (goals or assists) from the events of completed matches.
// MatchesPlayed counts the distinct matches in which the player
// produced any event. Players with a zero count are omitted. Ties share
// a rank and the next distinct count skips ahead (1, 1, 3).
func ComputeLeaderboard(metric models.MatchEventType, events []*models.MatchEvent, playerNames map[int]string) []models.PlayerLeaderboardEntry {
	type playerAgg struct {
		count   int
		teamID  int
		matches map[int]struct{}
	}
	byPlayer := make(map[int]*playerAgg)

	for _, event := range events {
		agg, ok := byPlayer[event.PlayerID]
		if !ok {
			agg = &playerAgg{matches: make(map[int]struct{})}
			byPlayer[event.PlayerID] = agg
		}
		agg.matches[event.MatchID] = struct{}{}
		// The latest event decides team attribution; transfers mid
		// tournament are not modeled.
		agg.teamID = event.TeamID
		if event.Type == metric {
			agg.count++
		}
	}

	entries := make([]models.PlayerLeaderboardEntry, 0, len(byPlayer))
	for playerID, agg := range byPlayer {
		if agg.count == 0 {
			continue
		}
		entries = append(entries, models.PlayerLeaderboardEntry{
			PlayerID:      playerID,
			PlayerName:    playerNames[playerID],
			TeamID:        agg.teamID,
			Count:         agg.count,
			MatchesPlayed: len(agg.matches),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].PlayerName < entries[j].PlayerName
	})
	for i := range entries {
		if i > 0 && entries[i].Count == entries[i-1].Count {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
	return entries
}
