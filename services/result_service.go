package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dorofeev01/matchday-system/brackets"
	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

type MatchEventInput struct {
	Type     models.MatchEventType `json:"type" validate:"required"`
	Minute   int                   `json:"minute"`
	TeamID   int                   `json:"team_id" validate:"required"`
	PlayerID int                   `json:"player_id" validate:"required"`
}

type RecordResultInput struct {
	HomeScore int               `json:"home_score"`
	AwayScore int               `json:"away_score"`
	Events    []MatchEventInput `json:"events"`
}

// StandingsInvalidator is what the result recorder needs from the
// standings cache: a synchronous invalidation hook, so a read issued
// right after recording never sees the stale table.
type StandingsInvalidator interface {
	Invalidate(tournamentID int)
}

// ResultService drives the match lifecycle: start, postpone,
// reschedule, cancel, and the central RecordResult operation that
// writes the score, its events and the elimination-bracket advancement
// in one transaction.
type ResultService struct {
	locks            *TournamentLocks
	tx               TxRunner
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	eventRepo        repositories.EventRepository
	standings        StandingsInvalidator
	publisher        EventPublisher
	logger           *slog.Logger
}

func NewResultService(
	locks *TournamentLocks,
	tx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	standings StandingsInvalidator,
	publisher EventPublisher,
	logger *slog.Logger,
) *ResultService {
	return &ResultService{
		locks:            locks,
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		eventRepo:        eventRepo,
		standings:        standings,
		publisher:        publisher,
		logger:           logger,
	}
}

func (s *ResultService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *ResultService) ListMatches(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	if _, err := s.loadTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, filter)
}

// RecordResult records the final score of a match together with its
// events. In an elimination tournament it also advances the winner into
// the next round, creating the next-round match lazily when this result
// is the first of the feeding pair to arrive.
func (s *ResultService) RecordResult(ctx context.Context, matchID, actingUserID int, input RecordResultInput) (*models.Match, error) {
	match, tournament, unlock, err := s.loadForMutation(ctx, matchID, actingUserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if match.Status != models.MatchStatusScheduled && match.Status != models.MatchStatusInProgress {
		if match.IsFinal() {
			return nil, ErrMatchAlreadyFinal
		}
		return nil, ErrMatchNotPlayable
	}
	if match.HomeTeamID == nil || match.AwayTeamID == nil {
		return nil, ErrMatchSlotUndecided
	}
	if input.HomeScore < 0 || input.AwayScore < 0 {
		return nil, ErrNegativeScore
	}
	if tournament.Format == models.FormatSingleElimination && input.HomeScore == input.AwayScore {
		return nil, ErrDrawNotAllowed
	}
	for _, event := range input.Events {
		if !event.Type.Valid() {
			return nil, ErrInvalidEventType
		}
		if event.Minute < models.MinEventMinute || event.Minute > models.MaxEventMinute {
			return nil, ErrInvalidEventMinute
		}
		if event.TeamID != *match.HomeTeamID && event.TeamID != *match.AwayTeamID {
			return nil, ErrEventTeamNotInMatch
		}
	}

	homeScore, awayScore := input.HomeScore, input.AwayScore
	match.HomeScore = &homeScore
	match.AwayScore = &awayScore
	match.Status = models.MatchStatusCompleted
	match.WinnerTeamID = nil
	switch {
	case homeScore > awayScore:
		match.WinnerTeamID = match.HomeTeamID
	case awayScore > homeScore:
		match.WinnerTeamID = match.AwayTeamID
	}

	err = s.tx.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.matchRepo.RecordResult(ctx, tx, match); err != nil {
			// The update is guarded on the current status, so zero rows
			// here means the match was finalized since our read.
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchAlreadyFinal
			}
			return fmt.Errorf("failed to record result: %w", err)
		}
		for _, event := range input.Events {
			record := &models.MatchEvent{
				MatchID:  match.ID,
				Type:     event.Type,
				Minute:   event.Minute,
				TeamID:   event.TeamID,
				PlayerID: event.PlayerID,
			}
			if err := s.eventRepo.Create(ctx, tx, record); err != nil {
				return fmt.Errorf("failed to record match event: %w", err)
			}
		}
		if tournament.Format == models.FormatSingleElimination {
			if err := s.advanceBracket(ctx, tx, tournament, match); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.standings.Invalidate(tournament.ID)
	s.logger.Info("match result recorded",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("match_id", match.ID),
		slog.Int("home_score", homeScore),
		slog.Int("away_score", awayScore))

	s.publisher.Publish(models.DomainEvent{
		Type:         models.EventMatchResultRecorded,
		TournamentID: tournament.ID,
		Payload: map[string]interface{}{
			"match_id":   match.ID,
			"home_score": homeScore,
			"away_score": awayScore,
		},
	})
	return match, nil
}

// StartMatch moves a scheduled match to in progress.
func (s *ResultService) StartMatch(ctx context.Context, matchID, actingUserID int) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, func(match *models.Match) error {
		if match.Status != models.MatchStatusScheduled {
			return ErrMatchNotStartable
		}
		if match.HomeTeamID == nil || match.AwayTeamID == nil {
			return ErrMatchSlotUndecided
		}
		match.Status = models.MatchStatusInProgress
		return nil
	}, nil)
}

// Postpone parks a scheduled or in-progress match.
func (s *ResultService) Postpone(ctx context.Context, matchID, actingUserID int) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, func(match *models.Match) error {
		if match.Status != models.MatchStatusScheduled && match.Status != models.MatchStatusInProgress {
			return ErrMatchNotPostponable
		}
		match.Status = models.MatchStatusPostponed
		return nil
	}, nil)
}

// Reschedule puts a postponed match back on the calendar.
func (s *ResultService) Reschedule(ctx context.Context, matchID, actingUserID int, date time.Time) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, func(match *models.Match) error {
		if match.Status != models.MatchStatusPostponed {
			return ErrMatchNotPostponed
		}
		match.Status = models.MatchStatusScheduled
		match.ScheduledDate = date
		return nil
	}, &date)
}

// CancelMatch voids a match that will not be played.
func (s *ResultService) CancelMatch(ctx context.Context, matchID, actingUserID int) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, func(match *models.Match) error {
		if match.IsFinal() {
			return ErrMatchAlreadyFinal
		}
		match.Status = models.MatchStatusCancelled
		return nil
	}, nil)
}

func (s *ResultService) ListEvents(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	if _, err := s.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByMatch(ctx, matchID)
}

// DeleteEvent removes a mistakenly entered event. The event must belong
// to the given match. Events of a completed match are part of the
// recorded result and are locked.
func (s *ResultService) DeleteEvent(ctx context.Context, matchID, eventID, actingUserID int) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	if event.MatchID != matchID {
		return ErrEventNotFound
	}

	match, tournament, unlock, err := s.loadForMutation(ctx, event.MatchID, actingUserID)
	if err != nil {
		return err
	}
	defer unlock()

	if match.Status == models.MatchStatusCompleted {
		return ErrEventLocked
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event %d: %w", eventID, err)
	}
	s.standings.Invalidate(tournament.ID)
	return nil
}

// advanceBracket moves the winner into the next round. Slots 2k-1 and
// 2k of round r feed slot k of round r+1; the odd slot's winner plays
// at home. The next-round match may not exist yet when this result is
// the first of the pair, in which case it is created here; the
// sibling's later result fills the remaining side via FillSlot.
func (s *ResultService) advanceBracket(ctx context.Context, tx repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) error {
	rounds, err := s.totalRounds(ctx, tx, tournament)
	if err != nil {
		return err
	}
	if match.Round >= rounds {
		// The final: record the champion and complete the tournament.
		if err := s.tournamentRepo.UpdateWinner(ctx, tx, tournament.ID, match.WinnerTeamID); err != nil {
			return fmt.Errorf("failed to record tournament winner: %w", err)
		}
		err := s.tournamentRepo.UpdateStatusIf(ctx, tx,
			tournament.ID, models.TournamentStatusInProgress, models.TournamentStatusCompleted)
		if err != nil && !errors.Is(err, repositories.ErrStatusPrecondition) {
			return fmt.Errorf("failed to complete tournament: %w", err)
		}
		return nil
	}

	nextRound := match.Round + 1
	nextSlot := brackets.NextSlot(match.Slot)
	winnerID := *match.WinnerTeamID

	next, err := s.matchRepo.GetByBracketSlot(ctx, tx, tournament.ID, nextRound, nextSlot)
	if err == nil {
		return s.matchRepo.FillSlot(ctx, tx, next.ID, brackets.IsUpperFeed(match.Slot), winnerID)
	}
	if !errors.Is(err, repositories.ErrMatchNotFound) {
		return fmt.Errorf("failed to look up next-round slot: %w", err)
	}

	// No next-round match yet. If the sibling already finished we know
	// both sides and can create it; otherwise the sibling's result will.
	sibling, err := s.matchRepo.GetByBracketSlot(ctx, tx, tournament.ID, match.Round, brackets.SiblingSlot(match.Slot))
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up sibling slot: %w", err)
	}

	var homeID, awayID *int
	if brackets.IsUpperFeed(match.Slot) {
		homeID = &winnerID
		if sibling.Status == models.MatchStatusCompleted {
			awayID = sibling.WinnerTeamID
		}
	} else {
		awayID = &winnerID
		if sibling.Status == models.MatchStatusCompleted {
			homeID = sibling.WinnerTeamID
		}
	}
	if homeID == nil && awayID == nil {
		return nil
	}
	if (homeID == nil || awayID == nil) && sibling.Status != models.MatchStatusCompleted {
		// Sibling is still pending; emit nothing, it creates the slot
		// when it completes.
		return nil
	}

	nextMatch := &models.Match{
		TournamentID:  tournament.ID,
		Round:         nextRound,
		Slot:          nextSlot,
		HomeTeamID:    homeID,
		AwayTeamID:    awayID,
		ScheduledDate: tournament.StartDate.AddDate(0, 0, (nextRound-1)*tournament.DaysBetweenRounds),
		Venue:         tournament.DefaultVenue,
		Status:        models.MatchStatusScheduled,
	}
	if err := s.matchRepo.Create(ctx, tx, nextMatch); err != nil {
		return fmt.Errorf("failed to create next-round match: %w", err)
	}
	return nil
}

func (s *ResultService) totalRounds(ctx context.Context, tx repositories.SQLExecutor, tournament *models.Tournament) (int, error) {
	// Bracket depth is a function of the approved team count, which is
	// frozen once fixtures exist.
	approved, err := s.registrationRepo.CountByStatus(ctx, tx, tournament.ID, models.RegistrationApproved)
	if err != nil {
		return 0, fmt.Errorf("failed to size bracket: %w", err)
	}
	return brackets.TotalRounds(approved), nil
}

func (s *ResultService) loadTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	return tournament, nil
}

// loadForMutation resolves the match and its tournament, checks the
// organizer, and takes the tournament lock. Callers must call unlock.
func (s *ResultService) loadForMutation(ctx context.Context, matchID, actingUserID int) (*models.Match, *models.Tournament, func(), error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, nil, err
	}

	unlock := s.locks.Lock(match.TournamentID)
	// Re-read under the lock so a concurrent result cannot be overwritten.
	match, err = s.GetMatch(ctx, matchID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}

	tournament, err := s.loadTournament(ctx, match.TournamentID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}
	if tournament.OrganizerID != actingUserID {
		unlock()
		return nil, nil, nil, ErrNotOrganizer
	}
	if tournament.Status != models.TournamentStatusInProgress {
		unlock()
		return nil, nil, nil, ErrWrongTournamentStatus
	}
	return match, tournament, unlock, nil
}

func (s *ResultService) transition(ctx context.Context, matchID, actingUserID int, mutate func(*models.Match) error, newDate *time.Time) (*models.Match, error) {
	match, _, unlock, err := s.loadForMutation(ctx, matchID, actingUserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := mutate(match); err != nil {
		return nil, err
	}
	if newDate != nil {
		if err := s.matchRepo.Reschedule(ctx, nil, match.ID, *newDate); err != nil {
			return nil, fmt.Errorf("failed to reschedule match %d: %w", match.ID, err)
		}
		return match, nil
	}
	if err := s.matchRepo.UpdateStatus(ctx, nil, match.ID, match.Status); err != nil {
		return nil, fmt.Errorf("failed to update match %d status: %w", match.ID, err)
	}
	return match, nil
}
