package models

import "time"

// RegistrationStatus mirrors the registration_status ENUM in the database.
//
// Allowed transitions: pending -> approved | rejected,
// pending/approved -> withdrawn. Rejected and withdrawn are terminal.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationApproved  RegistrationStatus = "approved"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationWithdrawn RegistrationStatus = "withdrawn"
)

// TeamRegistration is the (tournament, team) registration record,
// unique per pair.
type TeamRegistration struct {
	ID           int                `json:"id" db:"id"`
	TournamentID int                `json:"tournament_id" db:"tournament_id"`
	TeamID       int                `json:"team_id" db:"team_id"`
	Status       RegistrationStatus `json:"status" db:"status"`
	RequestedAt  time.Time          `json:"requested_at" db:"requested_at"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty" db:"decided_at"`
}
