package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusDraft              TournamentStatus = "draft"
	TournamentStatusRegistrationOpen   TournamentStatus = "registration_open"
	TournamentStatusRegistrationClosed TournamentStatus = "registration_closed"
	TournamentStatusInProgress         TournamentStatus = "in_progress"
	TournamentStatusCompleted          TournamentStatus = "completed"
	TournamentStatusCancelled          TournamentStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is possible.
func (s TournamentStatus) IsTerminal() bool {
	return s == TournamentStatusCompleted || s == TournamentStatusCancelled
}

// TournamentFormat is the fixed format enumeration. Any other value
// fails validation, it is never silently defaulted.
type TournamentFormat string

const (
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSingleElimination TournamentFormat = "single_elimination"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatRoundRobin || f == FormatSingleElimination
}

// Tournament is the aggregate root. Registrations and matches reference
// it by foreign key; it never embeds them back.
type Tournament struct {
	ID                 int              `json:"id" db:"id"`
	Name               string           `json:"name" db:"name"`
	Description        *string          `json:"description,omitempty" db:"description"`
	Format             TournamentFormat `json:"format" db:"format"`
	OrganizerID        int              `json:"organizer_id" db:"organizer_id"`
	MinTeams           int              `json:"min_teams" db:"min_teams"`
	MaxTeams           int              `json:"max_teams" db:"max_teams"`
	RegistrationStart  time.Time        `json:"registration_start" db:"registration_start"`
	RegistrationEnd    time.Time        `json:"registration_end" db:"registration_end"`
	StartDate          time.Time        `json:"start_date" db:"start_date"`
	EndDate            time.Time        `json:"end_date" db:"end_date"`
	DefaultVenue       *string          `json:"default_venue,omitempty" db:"default_venue"`
	DaysBetweenRounds  int              `json:"days_between_rounds" db:"days_between_rounds"`
	Status             TournamentStatus `json:"status" db:"status"`
	WinnerTeamID       *int             `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
}
