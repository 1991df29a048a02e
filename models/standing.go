package models

// Standing is a derived league-table row. It is recomputed from the
// completed matches of a tournament and never hand-edited or stored.
type Standing struct {
	TeamID         int    `json:"team_id"`
	TeamName       string `json:"team_name"`
	MatchesPlayed  int    `json:"matches_played"`
	Wins           int    `json:"wins"`
	Draws          int    `json:"draws"`
	Losses         int    `json:"losses"`
	GoalsFor       int    `json:"goals_for"`
	GoalsAgainst   int    `json:"goals_against"`
	GoalDifference int    `json:"goal_difference"`
	Points         int    `json:"points"`
	Rank           int    `json:"rank"`
}

// PlayerLeaderboardEntry is a derived per-player row for the goal or
// assist leaderboard. Rank uses standard competition ranking: tied
// counts share a rank and the next distinct count skips ahead (1,1,3).
type PlayerLeaderboardEntry struct {
	PlayerID      int    `json:"player_id"`
	PlayerName    string `json:"player_name"`
	TeamID        int    `json:"team_id"`
	Count         int    `json:"count"`
	MatchesPlayed int    `json:"matches_played"`
	Rank          int    `json:"rank"`
}
