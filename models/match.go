package models

import "time"

// MatchStatus mirrors the match_status ENUM in the database.
type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusPostponed  MatchStatus = "postponed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// Match is a scheduled fixture between two approved teams. Created
// exclusively by fixture generation, mutated exclusively through result
// recording.
//
// Round is the elimination round (1 = first round) or the round-robin
// matchday. Slot is the match position within its round; in an
// elimination bracket slots 2k-1 and 2k feed slot k of the next round.
// Team IDs are nullable: a bracket placeholder created for a bye-fed
// slot knows only one of its sides until the feeding match completes.
type Match struct {
	ID            int         `json:"id" db:"id"`
	TournamentID  int         `json:"tournament_id" db:"tournament_id"`
	HomeTeamID    *int        `json:"home_team_id,omitempty" db:"home_team_id"`
	AwayTeamID    *int        `json:"away_team_id,omitempty" db:"away_team_id"`
	Round         int         `json:"round" db:"round"`
	Slot          int         `json:"slot" db:"slot"`
	ScheduledDate time.Time   `json:"scheduled_date" db:"scheduled_date"`
	Venue         *string     `json:"venue,omitempty" db:"venue"`
	Status        MatchStatus `json:"status" db:"status"`
	HomeScore     *int        `json:"home_score,omitempty" db:"home_score"`
	AwayScore     *int        `json:"away_score,omitempty" db:"away_score"`
	WinnerTeamID  *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// IsFinal reports whether the match can no longer change outcome.
func (m *Match) IsFinal() bool {
	return m.Status == MatchStatusCompleted || m.Status == MatchStatusCancelled
}
