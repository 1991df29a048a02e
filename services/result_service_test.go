package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
)

// seedPlayableMatch sets up an in-progress tournament with an approved
// pair of teams and one scheduled match between them.
func seedPlayableMatch(env *testEnv, format models.TournamentFormat) (*models.Tournament, *models.Match, []*models.Team) {
	tournament := env.seedTournament(func(tr *models.Tournament) {
		tr.Status = models.TournamentStatusInProgress
		tr.Format = format
	})
	teams := env.seedApprovedTeams(tournament.ID, 2)
	match := env.seedMatch(func(m *models.Match) {
		m.TournamentID = tournament.ID
		m.HomeTeamID = intPtr(teams[0].ID)
		m.AwayTeamID = intPtr(teams[1].ID)
	})
	return tournament, match, teams
}

func TestRecordResultCompletesMatch(t *testing.T) {
	env := newTestEnv()
	tournament, match, teams := seedPlayableMatch(env, models.FormatRoundRobin)
	scorer := env.seedUser("Dana Whitfield", models.RolePlayer)

	recorded, err := env.results.RecordResult(context.Background(), match.ID, testOrganizerID, RecordResultInput{
		HomeScore: 2,
		AwayScore: 1,
		Events: []MatchEventInput{
			{Type: models.EventGoal, Minute: 12, TeamID: teams[0].ID, PlayerID: scorer.ID},
			{Type: models.EventGoal, Minute: 55, TeamID: teams[0].ID, PlayerID: scorer.ID},
			{Type: models.EventGoal, Minute: 78, TeamID: teams[1].ID, PlayerID: scorer.ID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, recorded.Status)
	require.NotNil(t, recorded.WinnerTeamID)
	assert.Equal(t, teams[0].ID, *recorded.WinnerTeamID)

	events, err := env.results.ListEvents(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	published := env.publisher.byType(models.EventMatchResultRecorded)
	require.Len(t, published, 1)
	assert.Equal(t, tournament.ID, published[0].TournamentID)
}

func TestRecordResultDrawHasNoWinner(t *testing.T) {
	env := newTestEnv()
	_, match, _ := seedPlayableMatch(env, models.FormatRoundRobin)

	recorded, err := env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
		RecordResultInput{HomeScore: 1, AwayScore: 1})
	require.NoError(t, err)
	assert.Nil(t, recorded.WinnerTeamID)
}

func TestRecordResultRejectsDrawInElimination(t *testing.T) {
	env := newTestEnv()
	_, match, _ := seedPlayableMatch(env, models.FormatSingleElimination)

	_, err := env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
		RecordResultInput{HomeScore: 2, AwayScore: 2})
	assert.ErrorIs(t, err, ErrDrawNotAllowed)
}

func TestRecordResultValidation(t *testing.T) {
	env := newTestEnv()
	_, match, teams := seedPlayableMatch(env, models.FormatRoundRobin)
	outsider := env.seedTeam("Outsiders FC", testManagerID)

	cases := []struct {
		name    string
		input   RecordResultInput
		wantErr error
	}{
		{"negative home score", RecordResultInput{HomeScore: -1}, ErrNegativeScore},
		{"negative away score", RecordResultInput{AwayScore: -2}, ErrNegativeScore},
		{"unknown event type", RecordResultInput{Events: []MatchEventInput{
			{Type: "own_goal", Minute: 10, TeamID: teams[0].ID, PlayerID: 1},
		}}, ErrInvalidEventType},
		{"minute out of range", RecordResultInput{Events: []MatchEventInput{
			{Type: models.EventGoal, Minute: 131, TeamID: teams[0].ID, PlayerID: 1},
		}}, ErrInvalidEventMinute},
		{"event team not in match", RecordResultInput{Events: []MatchEventInput{
			{Type: models.EventGoal, Minute: 10, TeamID: outsider.ID, PlayerID: 1},
		}}, ErrEventTeamNotInMatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.results.RecordResult(context.Background(), match.ID, testOrganizerID, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// None of the rejected inputs may have touched the match.
	assert.Equal(t, models.MatchStatusScheduled, env.matchByID(match.ID).Status)
}

func TestRecordResultStateGuards(t *testing.T) {
	env := newTestEnv()

	t.Run("already final", func(t *testing.T) {
		_, match, _ := seedPlayableMatch(env, models.FormatRoundRobin)
		_, err := env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
			RecordResultInput{HomeScore: 1, AwayScore: 0})
		require.NoError(t, err)

		_, err = env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
			RecordResultInput{HomeScore: 3, AwayScore: 0})
		assert.ErrorIs(t, err, ErrMatchAlreadyFinal)
	})

	t.Run("postponed", func(t *testing.T) {
		_, match, _ := seedPlayableMatch(env, models.FormatRoundRobin)
		_, err := env.results.Postpone(context.Background(), match.ID, testOrganizerID)
		require.NoError(t, err)

		_, err = env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
			RecordResultInput{HomeScore: 1, AwayScore: 0})
		assert.ErrorIs(t, err, ErrMatchNotPlayable)
	})

	t.Run("undecided slot", func(t *testing.T) {
		tournament := env.seedTournament(func(tr *models.Tournament) {
			tr.Status = models.TournamentStatusInProgress
			tr.Format = models.FormatSingleElimination
		})
		teams := env.seedApprovedTeams(tournament.ID, 2)
		placeholder := env.seedMatch(func(m *models.Match) {
			m.TournamentID = tournament.ID
			m.HomeTeamID = intPtr(teams[0].ID)
		})

		_, err := env.results.RecordResult(context.Background(), placeholder.ID, testOrganizerID,
			RecordResultInput{HomeScore: 1, AwayScore: 0})
		assert.ErrorIs(t, err, ErrMatchSlotUndecided)
	})

	t.Run("tournament not in progress", func(t *testing.T) {
		tournament := env.seedTournament(func(tr *models.Tournament) {
			tr.Status = models.TournamentStatusRegistrationClosed
		})
		teams := env.seedApprovedTeams(tournament.ID, 2)
		match := env.seedMatch(func(m *models.Match) {
			m.TournamentID = tournament.ID
			m.HomeTeamID = intPtr(teams[0].ID)
			m.AwayTeamID = intPtr(teams[1].ID)
		})

		_, err := env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
			RecordResultInput{HomeScore: 1, AwayScore: 0})
		assert.ErrorIs(t, err, ErrWrongTournamentStatus)
	})

	t.Run("not the organizer", func(t *testing.T) {
		_, match, _ := seedPlayableMatch(env, models.FormatRoundRobin)
		_, err := env.results.RecordResult(context.Background(), match.ID, testManagerID,
			RecordResultInput{HomeScore: 1, AwayScore: 0})
		assert.ErrorIs(t, err, ErrNotOrganizer)
	})
}

func TestMatchLifecycleTransitions(t *testing.T) {
	env := newTestEnv()
	_, match, _ := seedPlayableMatch(env, models.FormatRoundRobin)

	started, err := env.results.StartMatch(context.Background(), match.ID, testOrganizerID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, started.Status)

	_, err = env.results.StartMatch(context.Background(), match.ID, testOrganizerID)
	assert.ErrorIs(t, err, ErrMatchNotStartable)

	postponed, err := env.results.Postpone(context.Background(), match.ID, testOrganizerID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPostponed, postponed.Status)

	_, err = env.results.Postpone(context.Background(), match.ID, testOrganizerID)
	assert.ErrorIs(t, err, ErrMatchNotPostponable)

	newDate := env.clock.Now().Add(120 * time.Hour)
	rescheduled, err := env.results.Reschedule(context.Background(), match.ID, testOrganizerID, newDate)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, rescheduled.Status)
	assert.Equal(t, newDate, env.matchByID(match.ID).ScheduledDate)

	_, err = env.results.Reschedule(context.Background(), match.ID, testOrganizerID, newDate)
	assert.ErrorIs(t, err, ErrMatchNotPostponed)

	cancelled, err := env.results.CancelMatch(context.Background(), match.ID, testOrganizerID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, cancelled.Status)

	_, err = env.results.CancelMatch(context.Background(), match.ID, testOrganizerID)
	assert.ErrorIs(t, err, ErrMatchAlreadyFinal)
}

func TestStartMatchRequiresDecidedSlots(t *testing.T) {
	env := newTestEnv()
	tournament := env.seedTournament(func(tr *models.Tournament) {
		tr.Status = models.TournamentStatusInProgress
		tr.Format = models.FormatSingleElimination
	})
	teams := env.seedApprovedTeams(tournament.ID, 2)
	placeholder := env.seedMatch(func(m *models.Match) {
		m.TournamentID = tournament.ID
		m.AwayTeamID = intPtr(teams[1].ID)
	})

	_, err := env.results.StartMatch(context.Background(), placeholder.ID, testOrganizerID)
	assert.ErrorIs(t, err, ErrMatchSlotUndecided)
}

func TestDeleteEventLockedAfterCompletion(t *testing.T) {
	env := newTestEnv()
	_, match, teams := seedPlayableMatch(env, models.FormatRoundRobin)
	scorer := env.seedUser("Dana Whitfield", models.RolePlayer)

	_, err := env.results.StartMatch(context.Background(), match.ID, testOrganizerID)
	require.NoError(t, err)

	event := &models.MatchEvent{MatchID: match.ID, Type: models.EventGoal, Minute: 5, TeamID: teams[0].ID, PlayerID: scorer.ID}
	require.NoError(t, (&fakeEventRepo{store: env.store}).Create(context.Background(), nil, event))

	require.NoError(t, env.results.DeleteEvent(context.Background(), match.ID, event.ID, testOrganizerID))
	_, err = (&fakeEventRepo{store: env.store}).GetByID(context.Background(), event.ID)
	assert.ErrorIs(t, err, repositories.ErrEventNotFound)

	_, err = env.results.RecordResult(context.Background(), match.ID, testOrganizerID, RecordResultInput{
		HomeScore: 1,
		AwayScore: 0,
		Events: []MatchEventInput{
			{Type: models.EventGoal, Minute: 30, TeamID: teams[0].ID, PlayerID: scorer.ID},
		},
	})
	require.NoError(t, err)

	events, err := env.results.ListEvents(context.Background(), match.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	err = env.results.DeleteEvent(context.Background(), match.ID, events[0].ID, testOrganizerID)
	assert.ErrorIs(t, err, ErrEventLocked)
}

// An event can only be deleted through its own match; a mismatched
// match ID is treated as not found.
func TestDeleteEventRequiresOwningMatch(t *testing.T) {
	env := newTestEnv()
	tournament, match, teams := seedPlayableMatch(env, models.FormatRoundRobin)
	other := env.seedMatch(func(m *models.Match) {
		m.TournamentID = tournament.ID
		m.Slot = 2
		m.HomeTeamID = intPtr(teams[1].ID)
		m.AwayTeamID = intPtr(teams[0].ID)
	})
	scorer := env.seedUser("Dana Whitfield", models.RolePlayer)

	event := &models.MatchEvent{MatchID: match.ID, Type: models.EventGoal, Minute: 5, TeamID: teams[0].ID, PlayerID: scorer.ID}
	require.NoError(t, (&fakeEventRepo{store: env.store}).Create(context.Background(), nil, event))

	err := env.results.DeleteEvent(context.Background(), other.ID, event.ID, testOrganizerID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	// The event is untouched and deletable through its own match.
	require.NoError(t, env.results.DeleteEvent(context.Background(), match.ID, event.ID, testOrganizerID))
}

// seedBracket builds a four-team elimination tournament with the two
// first-round matches persisted, as fixture generation would leave it.
func seedBracket(env *testEnv) (*models.Tournament, []*models.Match, []*models.Team) {
	tournament := env.seedTournament(func(tr *models.Tournament) {
		tr.Status = models.TournamentStatusInProgress
		tr.Format = models.FormatSingleElimination
		tr.DefaultVenue = strPtr("Arena One")
	})
	teams := env.seedApprovedTeams(tournament.ID, 4)

	semi1 := env.seedMatch(func(m *models.Match) {
		m.TournamentID = tournament.ID
		m.Round, m.Slot = 1, 1
		m.HomeTeamID = intPtr(teams[0].ID)
		m.AwayTeamID = intPtr(teams[3].ID)
	})
	semi2 := env.seedMatch(func(m *models.Match) {
		m.TournamentID = tournament.ID
		m.Round, m.Slot = 1, 2
		m.HomeTeamID = intPtr(teams[1].ID)
		m.AwayTeamID = intPtr(teams[2].ID)
	})
	return tournament, []*models.Match{semi1, semi2}, teams
}

func TestAdvanceBracketCreatesFinalLazily(t *testing.T) {
	env := newTestEnv()
	tournament, semis, teams := seedBracket(env)
	matchRepo := &fakeMatchRepo{store: env.store}

	_, err := env.results.RecordResult(context.Background(), semis[0].ID, testOrganizerID,
		RecordResultInput{HomeScore: 2, AwayScore: 0})
	require.NoError(t, err)

	// Only one feeding result is in; the final does not exist yet.
	_, err = matchRepo.GetByBracketSlot(context.Background(), nil, tournament.ID, 2, 1)
	assert.ErrorIs(t, err, repositories.ErrMatchNotFound)

	_, err = env.results.RecordResult(context.Background(), semis[1].ID, testOrganizerID,
		RecordResultInput{HomeScore: 0, AwayScore: 1})
	require.NoError(t, err)

	final, err := matchRepo.GetByBracketSlot(context.Background(), nil, tournament.ID, 2, 1)
	require.NoError(t, err)
	// The odd slot's winner plays the final at home.
	require.NotNil(t, final.HomeTeamID)
	require.NotNil(t, final.AwayTeamID)
	assert.Equal(t, teams[0].ID, *final.HomeTeamID)
	assert.Equal(t, teams[2].ID, *final.AwayTeamID)
	assert.Equal(t, models.MatchStatusScheduled, final.Status)
	require.NotNil(t, final.Venue)
	assert.Equal(t, "Arena One", *final.Venue)
	assert.Equal(t, tournament.StartDate.AddDate(0, 0, tournament.DaysBetweenRounds), final.ScheduledDate)
}

func TestAdvanceBracketFillsExistingSlot(t *testing.T) {
	env := newTestEnv()
	tournament, semis, teams := seedBracket(env)

	// The final already exists with only the away side known, as a
	// bye-resolved placeholder would.
	final := env.seedMatch(func(m *models.Match) {
		m.TournamentID = tournament.ID
		m.Round, m.Slot = 2, 1
		m.AwayTeamID = intPtr(teams[1].ID)
	})

	_, err := env.results.RecordResult(context.Background(), semis[0].ID, testOrganizerID,
		RecordResultInput{HomeScore: 3, AwayScore: 1})
	require.NoError(t, err)

	after := env.matchByID(final.ID)
	require.NotNil(t, after.HomeTeamID)
	assert.Equal(t, teams[0].ID, *after.HomeTeamID)
	assert.Equal(t, teams[1].ID, *after.AwayTeamID)
}

func TestFinalResultCompletesTournament(t *testing.T) {
	env := newTestEnv()
	tournament, semis, teams := seedBracket(env)

	_, err := env.results.RecordResult(context.Background(), semis[0].ID, testOrganizerID,
		RecordResultInput{HomeScore: 2, AwayScore: 0})
	require.NoError(t, err)
	_, err = env.results.RecordResult(context.Background(), semis[1].ID, testOrganizerID,
		RecordResultInput{HomeScore: 1, AwayScore: 0})
	require.NoError(t, err)

	final, err := (&fakeMatchRepo{store: env.store}).GetByBracketSlot(context.Background(), nil, tournament.ID, 2, 1)
	require.NoError(t, err)

	_, err = env.results.RecordResult(context.Background(), final.ID, testOrganizerID,
		RecordResultInput{HomeScore: 0, AwayScore: 2})
	require.NoError(t, err)

	after := env.tournamentByID(tournament.ID)
	assert.Equal(t, models.TournamentStatusCompleted, after.Status)
	require.NotNil(t, after.WinnerTeamID)
	assert.Equal(t, teams[1].ID, *after.WinnerTeamID)
}

func TestRecordResultRefreshesStandings(t *testing.T) {
	env := newTestEnv()
	tournament, match, teams := seedPlayableMatch(env, models.FormatRoundRobin)

	before, err := env.standings.GetStandings(context.Background(), tournament.ID)
	require.NoError(t, err)
	for _, row := range before {
		assert.Zero(t, row.MatchesPlayed)
	}

	_, err = env.results.RecordResult(context.Background(), match.ID, testOrganizerID,
		RecordResultInput{HomeScore: 4, AwayScore: 2})
	require.NoError(t, err)

	after, err := env.standings.GetStandings(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, teams[0].ID, after[0].TeamID)
	assert.Equal(t, 3, after[0].Points)
	assert.Equal(t, 1, after[0].Rank)
	assert.Equal(t, 0, after[1].Points)
}
