package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dorofeev01/matchday-system/brackets"
	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

type GenerateFixturesInput struct {
	Format            models.TournamentFormat `json:"format" validate:"required"`
	DaysBetweenRounds int                     `json:"days_between_rounds"`
	DefaultVenue      *string                 `json:"default_venue"`
	Venues            []string                `json:"venues"`
}

// FixtureService turns the approved team set into a persisted schedule.
// Generation replaces any previous schedule atomically, so calling it
// again before any match has been played is a regeneration, not an
// error.
type FixtureService struct {
	locks            *TournamentLocks
	tx               TxRunner
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	eventRepo        repositories.EventRepository
	publisher        EventPublisher
	logger           *slog.Logger
}

func NewFixtureService(
	locks *TournamentLocks,
	tx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *FixtureService {
	return &FixtureService{
		locks:            locks,
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		eventRepo:        eventRepo,
		publisher:        publisher,
		logger:           logger,
	}
}

// Generate builds and persists the fixture list for a tournament. The
// tournament must have closed registration (or be in progress with no
// match departed from Scheduled, for regeneration), and the approved
// team count must sit within the configured bounds.
func (s *FixtureService) Generate(ctx context.Context, tournamentID, actingUserID int, input GenerateFixturesInput) ([]*models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.OrganizerID != actingUserID {
		return nil, ErrNotOrganizer
	}
	if !input.Format.Valid() || input.Format != tournament.Format {
		return nil, ErrInvalidFormat
	}
	if input.DaysBetweenRounds < 1 {
		return nil, ErrInvalidRoundSpacing
	}

	regenerating := false
	switch tournament.Status {
	case models.TournamentStatusRegistrationClosed:
	case models.TournamentStatusInProgress:
		departed, err := s.matchRepo.CountDeparted(ctx, nil, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check played matches: %w", err)
		}
		if departed > 0 {
			return nil, ErrFixturesAlreadyPlayed
		}
		regenerating = true
	default:
		return nil, ErrWrongTournamentStatus
	}

	teamIDs, err := s.approvedTeamIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(teamIDs) < tournament.MinTeams || len(teamIDs) > tournament.MaxTeams {
		return nil, ErrTeamCountOutOfBounds
	}

	generator := brackets.ForFormat(input.Format)
	if generator == nil {
		return nil, ErrInvalidFormat
	}

	defaultVenue := ""
	if input.DefaultVenue != nil {
		defaultVenue = *input.DefaultVenue
	} else if tournament.DefaultVenue != nil {
		defaultVenue = *tournament.DefaultVenue
	}

	fixtures, err := generator.Generate(brackets.GenerateParams{
		TournamentID:      tournamentID,
		TeamIDs:           teamIDs,
		StartDate:         tournament.StartDate,
		DaysBetweenRounds: input.DaysBetweenRounds,
		DefaultVenue:      defaultVenue,
		Venues:            input.Venues,
	})
	if err != nil {
		return nil, fmt.Errorf("fixture generation failed: %w", err)
	}

	matches := make([]*models.Match, 0, len(fixtures))
	err = s.tx.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.eventRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil {
			return fmt.Errorf("failed to clear match events: %w", err)
		}
		if err := s.matchRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil {
			return fmt.Errorf("failed to clear previous fixtures: %w", err)
		}

		for _, fixture := range fixtures {
			match := &models.Match{
				TournamentID:  tournamentID,
				Round:         fixture.Round,
				Slot:          fixture.Slot,
				HomeTeamID:    fixture.HomeTeamID,
				AwayTeamID:    fixture.AwayTeamID,
				ScheduledDate: fixture.ScheduledDate,
				Status:        models.MatchStatusScheduled,
			}
			if fixture.Venue != "" {
				venue := fixture.Venue
				match.Venue = &venue
			}
			if err := s.matchRepo.Create(ctx, tx, match); err != nil {
				return fmt.Errorf("failed to insert fixture: %w", err)
			}
			matches = append(matches, match)
		}

		var venue *string
		if defaultVenue != "" {
			venue = &defaultVenue
		}
		if err := s.tournamentRepo.UpdateScheduleDefaults(ctx, tx, tournamentID, venue, input.DaysBetweenRounds); err != nil {
			return fmt.Errorf("failed to persist schedule defaults: %w", err)
		}

		if !regenerating {
			if err := s.tournamentRepo.UpdateStatusIf(ctx, tx,
				tournamentID, models.TournamentStatusRegistrationClosed, models.TournamentStatusInProgress); err != nil {
				if errors.Is(err, repositories.ErrStatusPrecondition) {
					return ErrWrongTournamentStatus
				}
				return fmt.Errorf("failed to start tournament: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fixtures generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(input.Format)),
		slog.Int("teams", len(teamIDs)),
		slog.Int("matches", len(matches)))

	s.publisher.Publish(models.DomainEvent{
		Type:         models.EventFixturesGenerated,
		TournamentID: tournamentID,
		Payload: map[string]interface{}{
			"format":  input.Format,
			"matches": len(matches),
		},
	})
	return matches, nil
}

// approvedTeamIDs returns approved team IDs ordered by decision time,
// which is the deterministic seed every generator relies on.
func (s *FixtureService) approvedTeamIDs(ctx context.Context, tournamentID int) ([]int, error) {
	status := models.RegistrationApproved
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &status)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved teams: %w", err)
	}
	teamIDs := make([]int, 0, len(registrations))
	for _, registration := range registrations {
		teamIDs = append(teamIDs, registration.TeamID)
	}
	return teamIDs, nil
}
