package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

// tournamentTable is everything derived from one tournament's completed
// matches, built in a single pass and cached as a unit.
type tournamentTable struct {
	standings []models.Standing
	goals     []models.PlayerLeaderboardEntry
	assists   []models.PlayerLeaderboardEntry
}

// StandingsService serves the derived league table and leaderboards
// with a cache-aside map. Result recording invalidates the tournament's
// entry synchronously, so a read issued after a recorded result always
// recomputes. Concurrent cold reads for the same tournament are
// collapsed into one computation by singleflight.
type StandingsService struct {
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	eventRepo        repositories.EventRepository
	teamRepo         repositories.TeamRepository
	userRepo         repositories.UserRepository

	group singleflight.Group

	mu    sync.RWMutex
	cache map[int]*tournamentTable
	// gen counts invalidations per tournament. A rebuild captures the
	// generation before reading and stores its table only if it is
	// unchanged, so a build racing a result commit can never put a
	// pre-result snapshot back into the cache.
	gen map[int]uint64
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
) *StandingsService {
	return &StandingsService{
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		eventRepo:        eventRepo,
		teamRepo:         teamRepo,
		userRepo:         userRepo,
		cache:            make(map[int]*tournamentTable),
		gen:              make(map[int]uint64),
	}
}

// Invalidate drops the cached table for a tournament. Called by the
// result recorder after every committed result.
func (s *StandingsService) Invalidate(tournamentID int) {
	s.mu.Lock()
	delete(s.cache, tournamentID)
	s.gen[tournamentID]++
	s.mu.Unlock()
}

func (s *StandingsService) GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	table, err := s.table(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return table.standings, nil
}

func (s *StandingsService) GetGoalLeaders(ctx context.Context, tournamentID int) ([]models.PlayerLeaderboardEntry, error) {
	table, err := s.table(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return table.goals, nil
}

func (s *StandingsService) GetAssistLeaders(ctx context.Context, tournamentID int) ([]models.PlayerLeaderboardEntry, error) {
	table, err := s.table(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return table.assists, nil
}

func (s *StandingsService) table(ctx context.Context, tournamentID int) (*tournamentTable, error) {
	s.mu.RLock()
	table, ok := s.cache[tournamentID]
	gen := s.gen[tournamentID]
	s.mu.RUnlock()
	if ok {
		return table, nil
	}

	// The generation is part of the flight key, so a read that arrives
	// after an invalidation never joins a rebuild that started before it.
	result, err, _ := s.group.Do(fmt.Sprintf("tournament:%d@%d", tournamentID, gen), func() (interface{}, error) {
		built, err := s.build(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gen[tournamentID] == gen {
			s.cache[tournamentID] = built
		}
		s.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*tournamentTable), nil
}

func (s *StandingsService) build(ctx context.Context, tournamentID int) (*tournamentTable, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	var (
		registrations []*models.TeamRegistration
		matches       []*models.Match
		events        []*models.MatchEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status := models.RegistrationApproved
		var err error
		registrations, err = s.registrationRepo.ListByTournament(gctx, tournamentID, &status)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, tournamentID, repositories.ListMatchesFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.eventRepo.ListByTournamentCompleted(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load standings inputs: %w", err)
	}

	teamIDs := make([]int, 0, len(registrations))
	for _, registration := range registrations {
		teamIDs = append(teamIDs, registration.TeamID)
	}
	teamNames, err := s.teamRepo.NamesByIDs(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team names: %w", err)
	}

	playerIDs := make([]int, 0, len(events))
	seen := make(map[int]struct{}, len(events))
	for _, event := range events {
		if _, ok := seen[event.PlayerID]; ok {
			continue
		}
		seen[event.PlayerID] = struct{}{}
		playerIDs = append(playerIDs, event.PlayerID)
	}
	playerNames, err := s.userRepo.NamesByIDs(ctx, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player names: %w", err)
	}

	return &tournamentTable{
		standings: ComputeStandings(teamIDs, teamNames, matches),
		goals:     ComputeLeaderboard(models.EventGoal, events, playerNames),
		assists:   ComputeLeaderboard(models.EventAssist, events, playerNames),
	}, nil
}
