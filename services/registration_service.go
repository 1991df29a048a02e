package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

// RegistrationService owns the per-tournament team registration state
// machine: pending -> approved | rejected, pending/approved ->
// withdrawn. Approval counting runs inside the tournament's critical
// section, so the approved count can never exceed the team cap.
type RegistrationService struct {
	locks            *TournamentLocks
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	teamRepo         repositories.TeamRepository
	publisher        EventPublisher
	clock            Clock
}

func NewRegistrationService(
	locks *TournamentLocks,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	publisher EventPublisher,
	clock Clock,
) *RegistrationService {
	return &RegistrationService{
		locks:            locks,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		teamRepo:         teamRepo,
		publisher:        publisher,
		clock:            clock,
	}
}

// Register creates a pending registration for the team.
func (s *RegistrationService) Register(ctx context.Context, tournamentID, teamID int) (*models.TeamRegistration, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusRegistrationOpen {
		return nil, ErrRegistrationNotOpen
	}

	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}

	approved, err := s.registrationRepo.CountByStatus(ctx, nil, tournamentID, models.RegistrationApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved teams: %w", err)
	}
	if approved >= tournament.MaxTeams {
		return nil, ErrTournamentFull
	}

	registration := &models.TeamRegistration{
		TournamentID: tournamentID,
		TeamID:       teamID,
		Status:       models.RegistrationPending,
		RequestedAt:  s.clock.Now(),
	}
	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return registration, nil
}

// Approve moves a pending registration to approved. Only the
// tournament organizer may decide registrations.
func (s *RegistrationService) Approve(ctx context.Context, tournamentID, teamID, actingUserID int) (*models.TeamRegistration, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tournament, registration, err := s.getForDecision(ctx, tournamentID, teamID, actingUserID)
	if err != nil {
		return nil, err
	}

	approved, err := s.registrationRepo.CountByStatus(ctx, nil, tournamentID, models.RegistrationApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved teams: %w", err)
	}
	if approved >= tournament.MaxTeams {
		return nil, ErrTournamentFull
	}

	decidedAt := s.clock.Now()
	if err := s.registrationRepo.UpdateStatusIf(ctx, nil, registration.ID,
		models.RegistrationPending, models.RegistrationApproved, decidedAt); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotPending
		}
		return nil, fmt.Errorf("failed to approve registration: %w", err)
	}
	registration.Status = models.RegistrationApproved
	registration.DecidedAt = &decidedAt

	s.publisher.Publish(models.DomainEvent{
		Type:         models.EventTeamApproved,
		TournamentID: tournamentID,
		Payload:      registration,
	})
	return registration, nil
}

// Reject moves a pending registration to rejected, a terminal state.
func (s *RegistrationService) Reject(ctx context.Context, tournamentID, teamID, actingUserID int) (*models.TeamRegistration, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	_, registration, err := s.getForDecision(ctx, tournamentID, teamID, actingUserID)
	if err != nil {
		return nil, err
	}

	decidedAt := s.clock.Now()
	if err := s.registrationRepo.UpdateStatusIf(ctx, nil, registration.ID,
		models.RegistrationPending, models.RegistrationRejected, decidedAt); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotPending
		}
		return nil, fmt.Errorf("failed to reject registration: %w", err)
	}
	registration.Status = models.RegistrationRejected
	registration.DecidedAt = &decidedAt

	s.publisher.Publish(models.DomainEvent{
		Type:         models.EventTeamRejected,
		TournamentID: tournamentID,
		Payload:      registration,
	})
	return registration, nil
}

// Withdraw lets the team manager pull a pending or approved
// registration out. Once fixtures exist and the tournament is running,
// withdrawal is refused: a scheduled team leaving is a forfeit and is
// handled elsewhere, never a silent removal.
func (s *RegistrationService) Withdraw(ctx context.Context, tournamentID, teamID, actingUserID int) (*models.TeamRegistration, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}
	if team.ManagerID != actingUserID {
		return nil, ErrNotTeamManager
	}

	registration, err := s.getRegistration(ctx, tournamentID, teamID)
	if err != nil {
		return nil, err
	}
	if registration.Status != models.RegistrationPending && registration.Status != models.RegistrationApproved {
		return nil, ErrRegistrationFinal
	}

	if tournament.Status == models.TournamentStatusInProgress {
		generated, err := s.matchRepo.CountAll(ctx, nil, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to count matches: %w", err)
		}
		if generated > 0 {
			return nil, ErrWithdrawAfterSchedule
		}
	}

	decidedAt := s.clock.Now()
	if err := s.registrationRepo.UpdateStatusIf(ctx, nil, registration.ID,
		registration.Status, models.RegistrationWithdrawn, decidedAt); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationFinal
		}
		return nil, fmt.Errorf("failed to withdraw registration: %w", err)
	}
	registration.Status = models.RegistrationWithdrawn
	registration.DecidedAt = &decidedAt
	return registration, nil
}

// List returns the tournament's registrations, optionally filtered by
// status, in approval order.
func (s *RegistrationService) List(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.TeamRegistration, error) {
	if _, err := s.getTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return registrations, nil
}

func (s *RegistrationService) getTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	return tournament, nil
}

func (s *RegistrationService) getRegistration(ctx context.Context, tournamentID, teamID int) (*models.TeamRegistration, error) {
	registration, err := s.registrationRepo.GetByTournamentAndTeam(ctx, nil, tournamentID, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	return registration, nil
}

func (s *RegistrationService) getForDecision(ctx context.Context, tournamentID, teamID, actingUserID int) (*models.Tournament, *models.TeamRegistration, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	if tournament.OrganizerID != actingUserID {
		return nil, nil, ErrNotOrganizer
	}

	registration, err := s.getRegistration(ctx, tournamentID, teamID)
	if err != nil {
		return nil, nil, err
	}
	if registration.Status != models.RegistrationPending {
		return nil, nil, ErrRegistrationNotPending
	}
	return tournament, registration, nil
}
