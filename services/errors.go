package services

import (
	"errors"
	"fmt"
)

// Error classes. Every service error wraps exactly one of these so the
// HTTP layer (and callers generally) can branch on the class with
// errors.Is without knowing the specific failure.
//
// Retry semantics: ErrConflict signals a lost race and is safe to retry
// after a short backoff; ErrInvalidState may be retried after re-reading
// current state; the rest are not retryable.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state for the requested transition")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("operation not allowed for the current user")
	ErrNotFound     = errors.New("requested resource not found")
)

// Not found.
var (
	ErrTournamentNotFound   = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrTeamNotFound         = fmt.Errorf("%w: team", ErrNotFound)
	ErrMatchNotFound        = fmt.Errorf("%w: match", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("%w: team registration", ErrNotFound)
	ErrEventNotFound        = fmt.Errorf("%w: match event", ErrNotFound)
)

// Validation and business rules.
var (
	ErrNameRequired          = fmt.Errorf("%w: tournament name is required", ErrValidation)
	ErrInvalidFormat         = fmt.Errorf("%w: unknown tournament format", ErrValidation)
	ErrInvalidTeamBounds     = fmt.Errorf("%w: min teams must be at least 2 and not exceed max teams", ErrValidation)
	ErrInvalidRegWindow      = fmt.Errorf("%w: registration window must close before the tournament starts", ErrValidation)
	ErrInvalidDateRange      = fmt.Errorf("%w: tournament end date must be after start date", ErrValidation)
	ErrInvalidRoundSpacing   = fmt.Errorf("%w: days between rounds must be at least 1", ErrValidation)
	ErrTeamCountOutOfBounds  = fmt.Errorf("%w: approved team count outside the configured bounds", ErrValidation)
	ErrNegativeScore         = fmt.Errorf("%w: scores must be non-negative", ErrValidation)
	ErrDrawNotAllowed        = fmt.Errorf("%w: a draw cannot be recorded in an elimination match", ErrValidation)
	ErrInvalidEventType      = fmt.Errorf("%w: unknown match event type", ErrValidation)
	ErrInvalidEventMinute    = fmt.Errorf("%w: event minute out of range", ErrValidation)
	ErrEventTeamNotInMatch   = fmt.Errorf("%w: event team is not playing in this match", ErrValidation)
)

// State machine violations.
var (
	ErrRegistrationNotOpen    = fmt.Errorf("%w: tournament registration is not open", ErrInvalidState)
	ErrRegistrationNotPending = fmt.Errorf("%w: registration has already been decided", ErrInvalidState)
	ErrRegistrationFinal      = fmt.Errorf("%w: registration can no longer be withdrawn", ErrInvalidState)
	ErrWithdrawAfterSchedule  = fmt.Errorf("%w: team is scheduled, withdrawal must be handled as a forfeit", ErrInvalidState)
	ErrNotEnoughTeams         = fmt.Errorf("%w: approved team count is below the minimum", ErrInvalidState)
	ErrWrongTournamentStatus  = fmt.Errorf("%w: tournament status does not allow this operation", ErrInvalidState)
	ErrTournamentFinal        = fmt.Errorf("%w: tournament is already completed or cancelled", ErrInvalidState)
	ErrMatchAlreadyFinal      = fmt.Errorf("%w: match is already completed or cancelled", ErrInvalidState)
	ErrMatchNotPlayable       = fmt.Errorf("%w: a result can only be recorded for a scheduled or in-progress match", ErrInvalidState)
	ErrMatchNotStartable      = fmt.Errorf("%w: only a scheduled match can be started", ErrInvalidState)
	ErrMatchNotPostponable    = fmt.Errorf("%w: only scheduled or in-progress matches can be postponed", ErrInvalidState)
	ErrMatchNotPostponed      = fmt.Errorf("%w: only postponed matches can be rescheduled", ErrInvalidState)
	ErrMatchSlotUndecided     = fmt.Errorf("%w: match is waiting for a feeding result", ErrInvalidState)
	ErrFixturesAlreadyPlayed  = fmt.Errorf("%w: fixtures cannot be regenerated once a match has left the schedule", ErrInvalidState)
	ErrEventLocked            = fmt.Errorf("%w: events of a completed match cannot be deleted", ErrInvalidState)
)

// Conflicts.
var (
	ErrAlreadyRegistered = fmt.Errorf("%w: team is already registered for this tournament", ErrConflict)
	ErrTournamentFull    = fmt.Errorf("%w: tournament has no approved slots left", ErrConflict)
)

// Authorization.
var (
	ErrNotOrganizer   = fmt.Errorf("%w: only the tournament organizer may do this", ErrForbidden)
	ErrNotTeamManager = fmt.Errorf("%w: only the team manager may do this", ErrForbidden)
)
