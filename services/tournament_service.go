package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

type CreateTournamentInput struct {
	Name              string                  `json:"name" validate:"required"`
	Description       *string                 `json:"description"`
	Format            models.TournamentFormat `json:"format" validate:"required"`
	MinTeams          int                     `json:"min_teams" validate:"required"`
	MaxTeams          int                     `json:"max_teams" validate:"required"`
	RegistrationStart time.Time               `json:"registration_start" validate:"required"`
	RegistrationEnd   time.Time               `json:"registration_end" validate:"required"`
	StartDate         time.Time               `json:"start_date" validate:"required"`
	EndDate           time.Time               `json:"end_date" validate:"required"`
	DefaultVenue      *string                 `json:"default_venue"`
}

type UpdateTournamentInput struct {
	Name              *string    `json:"name"`
	Description       *string    `json:"description"`
	MinTeams          *int       `json:"min_teams"`
	MaxTeams          *int       `json:"max_teams"`
	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	DefaultVenue      *string    `json:"default_venue"`
}

// TournamentService owns the tournament status state machine:
//
//	Draft -> RegistrationOpen -> RegistrationClosed -> InProgress -> Completed
//
// with Cancelled reachable from any non-terminal state. Every
// transition is a conditional update on the persisted status, so the
// date-triggered sweep and user-triggered transitions can interleave
// without last-writer-wins anomalies.
type TournamentService struct {
	locks            *TournamentLocks
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	publisher        EventPublisher
	clock            Clock
	logger           *slog.Logger
}

func NewTournamentService(
	locks *TournamentLocks,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	publisher EventPublisher,
	clock Clock,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		locks:            locks,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
	}
}

func (s *TournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	tournament := &models.Tournament{
		Name:              input.Name,
		Description:       input.Description,
		Format:            input.Format,
		OrganizerID:       organizerID,
		MinTeams:          input.MinTeams,
		MaxTeams:          input.MaxTeams,
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		DefaultVenue:      input.DefaultVenue,
		DaysBetweenRounds: 1,
		Status:            models.TournamentStatusDraft,
	}
	if err := validateTournament(tournament); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, fmt.Errorf("%w: tournament name already in use", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *TournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	return s.get(ctx, id)
}

func (s *TournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// Update changes basic fields; allowed only while the tournament is a
// draft, after publication the configuration is frozen.
func (s *TournamentService) Update(ctx context.Context, id, actingUserID int, input UpdateTournamentInput) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	tournament, err := s.getOwned(ctx, id, actingUserID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusDraft {
		return nil, ErrWrongTournamentStatus
	}

	if input.Name != nil {
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.MinTeams != nil {
		tournament.MinTeams = *input.MinTeams
	}
	if input.MaxTeams != nil {
		tournament.MaxTeams = *input.MaxTeams
	}
	if input.RegistrationStart != nil {
		tournament.RegistrationStart = *input.RegistrationStart
	}
	if input.RegistrationEnd != nil {
		tournament.RegistrationEnd = *input.RegistrationEnd
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if input.DefaultVenue != nil {
		tournament.DefaultVenue = input.DefaultVenue
	}

	if err := validateTournament(tournament); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}
	return tournament, nil
}

func (s *TournamentService) Delete(ctx context.Context, id, actingUserID int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tournament, err := s.getOwned(ctx, id, actingUserID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentStatusDraft {
		return ErrWrongTournamentStatus
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return nil
}

// Publish opens registration: Draft -> RegistrationOpen.
func (s *TournamentService) Publish(ctx context.Context, id, actingUserID int) (*models.Tournament, error) {
	return s.manualTransition(ctx, id, actingUserID,
		models.TournamentStatusDraft, models.TournamentStatusRegistrationOpen, nil)
}

// CloseRegistration closes registration early by organizer action. It
// refuses when the approved team count is still below the minimum.
func (s *TournamentService) CloseRegistration(ctx context.Context, id, actingUserID int) (*models.Tournament, error) {
	precondition := func(ctx context.Context, t *models.Tournament) error {
		approved, err := s.registrationRepo.CountByStatus(ctx, nil, t.ID, models.RegistrationApproved)
		if err != nil {
			return fmt.Errorf("failed to count approved teams: %w", err)
		}
		if approved < t.MinTeams {
			return ErrNotEnoughTeams
		}
		return nil
	}
	return s.manualTransition(ctx, id, actingUserID,
		models.TournamentStatusRegistrationOpen, models.TournamentStatusRegistrationClosed, precondition)
}

// Cancel moves any non-terminal tournament to Cancelled.
func (s *TournamentService) Cancel(ctx context.Context, id, actingUserID int) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	tournament, err := s.getOwned(ctx, id, actingUserID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.IsTerminal() {
		return nil, ErrTournamentFinal
	}

	if err := s.tournamentRepo.UpdateStatusIf(ctx, nil, id, tournament.Status, models.TournamentStatusCancelled); err != nil {
		if errors.Is(err, repositories.ErrStatusPrecondition) {
			return nil, ErrWrongTournamentStatus
		}
		return nil, fmt.Errorf("failed to cancel tournament: %w", err)
	}
	tournament.Status = models.TournamentStatusCancelled
	s.publishStatusChange(tournament)
	return tournament, nil
}

// SweepStatuses applies every date-triggered transition that is due at
// `now`. It is idempotent and safe to re-run after a partial failure:
// each transition is a compare-and-swap on the persisted status, and a
// tournament that fails is logged and skipped so one bad record cannot
// halt the sweep.
func (s *TournamentService) SweepStatuses(ctx context.Context, now time.Time) error {
	ok, release, err := s.tournamentRepo.AcquireSweepLease(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire sweep lease: %w", err)
	}
	if !ok {
		s.logger.Info("sweep already running elsewhere, skipping")
		return nil
	}
	defer release()

	due, err := s.tournamentRepo.ListDueForSweep(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list tournaments for sweep: %w", err)
	}

	for _, tournament := range due {
		if err := s.sweepOne(ctx, tournament, now); err != nil {
			s.logger.Error("sweep transition failed",
				slog.Int("tournament_id", tournament.ID),
				slog.String("status", string(tournament.Status)),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *TournamentService) sweepOne(ctx context.Context, tournament *models.Tournament, now time.Time) error {
	unlock := s.locks.Lock(tournament.ID)
	defer unlock()

	switch tournament.Status {
	case models.TournamentStatusRegistrationOpen:
		if now.Before(tournament.RegistrationEnd) {
			return nil
		}
		return s.casAndPublish(ctx, tournament, models.TournamentStatusRegistrationClosed)

	case models.TournamentStatusRegistrationClosed:
		if now.Before(tournament.StartDate) {
			return nil
		}
		return s.casAndPublish(ctx, tournament, models.TournamentStatusInProgress)

	case models.TournamentStatusInProgress:
		total, err := s.matchRepo.CountAll(ctx, nil, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to count matches: %w", err)
		}
		blocking, err := s.matchRepo.CountBlocking(ctx, nil, tournament.ID, tournament.EndDate, now)
		if err != nil {
			return fmt.Errorf("failed to count blocking matches: %w", err)
		}
		// A generated tournament completes as soon as every match is
		// terminal; one without fixtures only once its end date passes.
		if blocking > 0 || (total == 0 && now.Before(tournament.EndDate)) {
			return nil
		}
		return s.casAndPublish(ctx, tournament, models.TournamentStatusCompleted)
	}
	return nil
}

func (s *TournamentService) casAndPublish(ctx context.Context, tournament *models.Tournament, to models.TournamentStatus) error {
	err := s.tournamentRepo.UpdateStatusIf(ctx, nil, tournament.ID, tournament.Status, to)
	if err != nil {
		// A concurrent user action won the race; the next sweep run
		// re-evaluates from the fresh status.
		if errors.Is(err, repositories.ErrStatusPrecondition) {
			return nil
		}
		return err
	}
	tournament.Status = to
	s.publishStatusChange(tournament)
	return nil
}

func (s *TournamentService) manualTransition(
	ctx context.Context,
	id, actingUserID int,
	from, to models.TournamentStatus,
	precondition func(context.Context, *models.Tournament) error,
) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	tournament, err := s.getOwned(ctx, id, actingUserID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != from {
		return nil, ErrWrongTournamentStatus
	}
	if precondition != nil {
		if err := precondition(ctx, tournament); err != nil {
			return nil, err
		}
	}

	if err := s.tournamentRepo.UpdateStatusIf(ctx, nil, id, from, to); err != nil {
		if errors.Is(err, repositories.ErrStatusPrecondition) {
			return nil, ErrWrongTournamentStatus
		}
		return nil, fmt.Errorf("failed to transition tournament %d: %w", id, err)
	}
	tournament.Status = to
	s.publishStatusChange(tournament)
	return tournament, nil
}

func (s *TournamentService) publishStatusChange(tournament *models.Tournament) {
	s.publisher.Publish(models.DomainEvent{
		Type:         models.EventTournamentStatusChanged,
		TournamentID: tournament.ID,
		Payload: map[string]interface{}{
			"status": tournament.Status,
		},
	})
}

func (s *TournamentService) get(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *TournamentService) getOwned(ctx context.Context, id, actingUserID int) (*models.Tournament, error) {
	tournament, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.OrganizerID != actingUserID {
		return nil, ErrNotOrganizer
	}
	return tournament, nil
}

func validateTournament(t *models.Tournament) error {
	if t.Name == "" {
		return ErrNameRequired
	}
	if !t.Format.Valid() {
		return ErrInvalidFormat
	}
	if t.MinTeams < 2 || t.MinTeams > t.MaxTeams {
		return ErrInvalidTeamBounds
	}
	if !t.RegistrationStart.Before(t.RegistrationEnd) || !t.RegistrationEnd.Before(t.StartDate) {
		return ErrInvalidRegWindow
	}
	if !t.StartDate.Before(t.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}
