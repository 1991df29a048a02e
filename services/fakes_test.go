package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

// fakeClock is a settable Clock for deterministic timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (p *capturePublisher) Publish(event models.DomainEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *capturePublisher) byType(t models.DomainEventType) []models.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.DomainEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// passthroughTx runs the function without a real transaction; the
// in-memory store has no rollback, which the tests account for.
type passthroughTx struct{}

func (passthroughTx) RunInTx(_ context.Context, fn func(tx repositories.SQLExecutor) error) error {
	return fn(nil)
}

// memStore is a single in-memory database shared by the fake
// repositories so cross-repository queries stay consistent.
type memStore struct {
	mu sync.Mutex

	tournaments   map[int]*models.Tournament
	registrations map[int]*models.TeamRegistration
	matches       map[int]*models.Match
	events        map[int]*models.MatchEvent
	teams         map[int]*models.Team
	users         map[int]*models.User

	nextID    int
	leaseHeld bool
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:   make(map[int]*models.Tournament),
		registrations: make(map[int]*models.TeamRegistration),
		matches:       make(map[int]*models.Match),
		events:        make(map[int]*models.MatchEvent),
		teams:         make(map[int]*models.Team),
		users:         make(map[int]*models.User),
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) addTeam(team models.Team) *models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == 0 {
		team.ID = s.id()
	}
	s.teams[team.ID] = &team
	return &team
}

func (s *memStore) addUser(user models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.id()
	}
	s.users[user.ID] = &user
	return &user
}

func copyTournament(t *models.Tournament) *models.Tournament { c := *t; return &c }
func copyRegistration(r *models.TeamRegistration) *models.TeamRegistration {
	c := *r
	return &c
}
func copyMatch(m *models.Match) *models.Match { c := *m; return &c }
func copyEvent(e *models.MatchEvent) *models.MatchEvent {
	c := *e
	return &c
}

// ---- TournamentRepository ----

type fakeTournamentRepo struct{ store *memStore }

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t.ID = r.store.id()
	r.store.tournaments[t.ID] = copyTournament(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return copyTournament(t), nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.store.tournaments {
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	r.store.tournaments[t.ID] = copyTournament(t)
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.store.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) UpdateStatusIf(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok || t.Status != from {
		return repositories.ErrStatusPrecondition
	}
	t.Status = to
	return nil
}

func (r *fakeTournamentRepo) UpdateWinner(_ context.Context, _ repositories.SQLExecutor, id int, winnerTeamID *int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerTeamID = winnerTeamID
	return nil
}

func (r *fakeTournamentRepo) UpdateScheduleDefaults(_ context.Context, _ repositories.SQLExecutor, id int, defaultVenue *string, daysBetweenRounds int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.DefaultVenue = defaultVenue
	t.DaysBetweenRounds = daysBetweenRounds
	return nil
}

func (r *fakeTournamentRepo) ListDueForSweep(_ context.Context, _ time.Time) ([]*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.store.tournaments {
		switch t.Status {
		case models.TournamentStatusRegistrationOpen,
			models.TournamentStatusRegistrationClosed,
			models.TournamentStatusInProgress:
			out = append(out, copyTournament(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) AcquireSweepLease(_ context.Context) (bool, func(), error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.leaseHeld {
		return false, nil, nil
	}
	r.store.leaseHeld = true
	return true, func() {
		r.store.mu.Lock()
		r.store.leaseHeld = false
		r.store.mu.Unlock()
	}, nil
}

// ---- RegistrationRepository ----

type fakeRegistrationRepo struct{ store *memStore }

func (r *fakeRegistrationRepo) Create(_ context.Context, registration *models.TeamRegistration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.registrations {
		if existing.TournamentID == registration.TournamentID && existing.TeamID == registration.TeamID {
			return repositories.ErrRegistrationConflict
		}
	}
	registration.ID = r.store.id()
	r.store.registrations[registration.ID] = copyRegistration(registration)
	return nil
}

func (r *fakeRegistrationRepo) GetByTournamentAndTeam(_ context.Context, _ repositories.SQLExecutor, tournamentID, teamID int) (*models.TeamRegistration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, registration := range r.store.registrations {
		if registration.TournamentID == tournamentID && registration.TeamID == teamID {
			return copyRegistration(registration), nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByTournament(_ context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.TeamRegistration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.TeamRegistration
	for _, registration := range r.store.registrations {
		if registration.TournamentID != tournamentID {
			continue
		}
		if status != nil && registration.Status != *status {
			continue
		}
		out = append(out, copyRegistration(registration))
	}
	// decided_at ASC NULLS LAST, requested_at ASC, id ASC
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DecidedAt == nil && b.DecidedAt != nil:
			return false
		case a.DecidedAt != nil && b.DecidedAt == nil:
			return true
		case a.DecidedAt != nil && b.DecidedAt != nil && !a.DecidedAt.Equal(*b.DecidedAt):
			return a.DecidedAt.Before(*b.DecidedAt)
		case !a.RequestedAt.Equal(b.RequestedAt):
			return a.RequestedAt.Before(b.RequestedAt)
		default:
			return a.ID < b.ID
		}
	})
	return out, nil
}

func (r *fakeRegistrationRepo) CountByStatus(_ context.Context, _ repositories.SQLExecutor, tournamentID int, status models.RegistrationStatus) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, registration := range r.store.registrations {
		if registration.TournamentID == tournamentID && registration.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeRegistrationRepo) UpdateStatusIf(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.RegistrationStatus, decidedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	registration, ok := r.store.registrations[id]
	if !ok || registration.Status != from {
		return repositories.ErrRegistrationNotFound
	}
	registration.Status = to
	registration.DecidedAt = &decidedAt
	return nil
}

// ---- MatchRepository ----

type fakeMatchRepo struct{ store *memStore }

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match.ID = r.store.id()
	r.store.matches[match.ID] = copyMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(match), nil
}

func (r *fakeMatchRepo) GetByBracketSlot(_ context.Context, _ repositories.SQLExecutor, tournamentID, round, slot int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, match := range r.store.matches {
		if match.TournamentID == tournamentID && match.Round == round && match.Slot == slot {
			return copyMatch(match), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Match
	for _, match := range r.store.matches {
		if match.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && match.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && match.Status != *filter.Status {
			continue
		}
		out = append(out, copyMatch(match))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *fakeMatchRepo) CountBlocking(_ context.Context, _ repositories.SQLExecutor, tournamentID int, endDate, now time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, match := range r.store.matches {
		if match.TournamentID != tournamentID {
			continue
		}
		switch match.Status {
		case models.MatchStatusScheduled, models.MatchStatusInProgress:
			count++
		case models.MatchStatusPostponed:
			if now.Before(endDate) {
				count++
			}
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) CountDeparted(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, match := range r.store.matches {
		if match.TournamentID == tournamentID && match.Status != models.MatchStatusScheduled {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) CountAll(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, match := range r.store.matches {
		if match.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) RecordResult(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Status != models.MatchStatusScheduled && match.Status != models.MatchStatusInProgress {
		return repositories.ErrMatchNotFound
	}
	match.HomeScore = m.HomeScore
	match.AwayScore = m.AwayScore
	match.WinnerTeamID = m.WinnerTeamID
	match.Status = models.MatchStatusCompleted
	return nil
}

func (r *fakeMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = status
	return nil
}

func (r *fakeMatchRepo) Reschedule(_ context.Context, _ repositories.SQLExecutor, id int, date time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusScheduled
	match.ScheduledDate = date
	return nil
}

func (r *fakeMatchRepo) FillSlot(_ context.Context, _ repositories.SQLExecutor, id int, home bool, teamID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if home {
		if match.HomeTeamID != nil {
			return repositories.ErrMatchNotFound
		}
		match.HomeTeamID = &teamID
	} else {
		if match.AwayTeamID != nil {
			return repositories.ErrMatchNotFound
		}
		match.AwayTeamID = &teamID
	}
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, match := range r.store.matches {
		if match.TournamentID == tournamentID {
			delete(r.store.matches, id)
		}
	}
	return nil
}

// ---- EventRepository ----

type fakeEventRepo struct{ store *memStore }

func (r *fakeEventRepo) Create(_ context.Context, _ repositories.SQLExecutor, event *models.MatchEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	event.ID = r.store.id()
	r.store.events[event.ID] = copyEvent(event)
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id int) (*models.MatchEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	event, ok := r.store.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	return copyEvent(event), nil
}

func (r *fakeEventRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.MatchEvent
	for _, event := range r.store.events {
		if event.MatchID == matchID {
			out = append(out, copyEvent(event))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEventRepo) ListByTournamentCompleted(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.MatchEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.MatchEvent
	for _, event := range r.store.events {
		match, ok := r.store.matches[event.MatchID]
		if !ok || match.TournamentID != tournamentID || match.Status != models.MatchStatusCompleted {
			continue
		}
		out = append(out, copyEvent(event))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(r.store.events, id)
	return nil
}

func (r *fakeEventRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, event := range r.store.events {
		match, ok := r.store.matches[event.MatchID]
		if ok && match.TournamentID == tournamentID {
			delete(r.store.events, id)
		}
	}
	return nil
}

// ---- TeamRepository / UserRepository ----

type fakeTeamRepo struct{ store *memStore }

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	c := *team
	return &c, nil
}

func (r *fakeTeamRepo) NamesByIDs(_ context.Context, ids []int) (map[int]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[int]string, len(ids))
	for _, id := range ids {
		if team, ok := r.store.teams[id]; ok {
			out[id] = team.Name
		}
	}
	return out, nil
}

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

func (r *fakeUserRepo) NamesByIDs(_ context.Context, ids []int) (map[int]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[int]string, len(ids))
	for _, id := range ids {
		if user, ok := r.store.users[id]; ok {
			out[id] = user.Name
		}
	}
	return out, nil
}
