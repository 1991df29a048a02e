package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/Dorofeev01/matchday-system/models"
)

const (
	testOrganizerID = 10
	testManagerID   = 20
)

var testBase = time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

// testEnv wires every service against the shared in-memory store so
// tests exercise the real service code paths end to end.
type testEnv struct {
	store     *memStore
	clock     *fakeClock
	publisher *capturePublisher

	tournaments   *TournamentService
	registrations *RegistrationService
	fixtures      *FixtureService
	results       *ResultService
	standings     *StandingsService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	clock := newFakeClock(testBase)
	publisher := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	locks := NewTournamentLocks()
	tx := passthroughTx{}
	tournamentRepo := &fakeTournamentRepo{store: store}
	registrationRepo := &fakeRegistrationRepo{store: store}
	matchRepo := &fakeMatchRepo{store: store}
	eventRepo := &fakeEventRepo{store: store}
	teamRepo := &fakeTeamRepo{store: store}
	userRepo := &fakeUserRepo{store: store}

	standings := NewStandingsService(tournamentRepo, registrationRepo, matchRepo, eventRepo, teamRepo, userRepo)

	return &testEnv{
		store:     store,
		clock:     clock,
		publisher: publisher,

		tournaments:   NewTournamentService(locks, tournamentRepo, registrationRepo, matchRepo, publisher, clock, logger),
		registrations: NewRegistrationService(locks, tournamentRepo, registrationRepo, matchRepo, teamRepo, publisher, clock),
		fixtures:      NewFixtureService(locks, tx, tournamentRepo, registrationRepo, matchRepo, eventRepo, publisher, logger),
		results:       NewResultService(locks, tx, tournamentRepo, registrationRepo, matchRepo, eventRepo, standings, publisher, logger),
		standings:     standings,
	}
}

// seedTournament inserts a tournament directly into the store,
// bypassing service validation. Defaults describe a tournament whose
// registration window is currently open.
func (e *testEnv) seedTournament(mutate func(*models.Tournament)) *models.Tournament {
	now := e.clock.Now()
	tournament := &models.Tournament{
		Name:              "Spring Cup",
		Format:            models.FormatRoundRobin,
		OrganizerID:       testOrganizerID,
		MinTeams:          2,
		MaxTeams:          8,
		RegistrationStart: now.Add(-48 * time.Hour),
		RegistrationEnd:   now.Add(24 * time.Hour),
		StartDate:         now.Add(72 * time.Hour),
		EndDate:           now.Add(240 * time.Hour),
		DaysBetweenRounds: 1,
		Status:            models.TournamentStatusRegistrationOpen,
		CreatedAt:         now,
	}
	if mutate != nil {
		mutate(tournament)
	}
	e.store.mu.Lock()
	tournament.ID = e.store.id()
	e.store.tournaments[tournament.ID] = copyTournament(tournament)
	e.store.mu.Unlock()
	return tournament
}

func (e *testEnv) seedTeam(name string, managerID int) *models.Team {
	return e.store.addTeam(models.Team{Name: name, ManagerID: managerID, CreatedAt: e.clock.Now()})
}

func (e *testEnv) seedUser(name string, role models.UserRole) *models.User {
	return e.store.addUser(models.User{Name: name, Role: role, CreatedAt: e.clock.Now()})
}

func (e *testEnv) seedRegistration(tournamentID, teamID int, status models.RegistrationStatus) *models.TeamRegistration {
	registration := &models.TeamRegistration{
		TournamentID: tournamentID,
		TeamID:       teamID,
		Status:       status,
		RequestedAt:  e.clock.Now(),
	}
	if status != models.RegistrationPending {
		decidedAt := e.clock.Now()
		registration.DecidedAt = &decidedAt
	}
	e.store.mu.Lock()
	registration.ID = e.store.id()
	e.store.registrations[registration.ID] = copyRegistration(registration)
	e.store.mu.Unlock()
	return registration
}

// seedApprovedTeams creates n teams and approves each for the
// tournament, returning the teams in creation order.
func (e *testEnv) seedApprovedTeams(tournamentID, n int) []*models.Team {
	teams := make([]*models.Team, 0, n)
	for i := 0; i < n; i++ {
		team := e.seedTeam(teamName(i), testManagerID)
		e.seedRegistration(tournamentID, team.ID, models.RegistrationApproved)
		teams = append(teams, team)
	}
	return teams
}

func teamName(i int) string {
	names := []string{
		"Harbour FC", "Northside United", "Riverton Rovers", "Milltown Athletic",
		"Eastgate Wanderers", "Brookfield City", "Kingsport Albion", "Westcliff Town",
		"Oakvale Rangers", "Southmoor Celtic", "Lakeside Corinthians", "Ferndale Victoria",
	}
	if i < len(names) {
		return names[i]
	}
	return names[i%len(names)] + " II"
}

func (e *testEnv) seedMatch(mutate func(*models.Match)) *models.Match {
	match := &models.Match{
		Round:         1,
		Slot:          1,
		Status:        models.MatchStatusScheduled,
		ScheduledDate: e.clock.Now().Add(72 * time.Hour),
	}
	if mutate != nil {
		mutate(match)
	}
	e.store.mu.Lock()
	match.ID = e.store.id()
	e.store.matches[match.ID] = copyMatch(match)
	e.store.mu.Unlock()
	return match
}

func (e *testEnv) matchByID(id int) *models.Match {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	match, ok := e.store.matches[id]
	if !ok {
		return nil
	}
	return copyMatch(match)
}

func (e *testEnv) tournamentByID(id int) *models.Tournament {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	tournament, ok := e.store.tournaments[id]
	if !ok {
		return nil
	}
	return copyTournament(tournament)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
