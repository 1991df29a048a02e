package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dorofeev01/matchday-system/models"
)

var ErrEventNotFound = errors.New("match event not found")

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error
	GetByID(ctx context.Context, id int) (*models.MatchEvent, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error)

	// ListByTournamentCompleted returns all events belonging to the
	// tournament's completed matches, the input of leaderboard
	// computation.
	ListByTournamentCompleted(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.MatchEvent, error)

	Delete(ctx context.Context, id int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.MatchEvent, error) {
	e := &models.MatchEvent{}
	err := row.Scan(&e.ID, &e.MatchID, &e.Type, &e.Minute, &e.TeamID, &e.PlayerID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, e *models.MatchEvent) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_events (match_id, type, minute, team_id, player_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := executor.QueryRowContext(ctx, query,
		e.MatchID, e.Type, e.Minute, e.TeamID, e.PlayerID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil && pqErrorCode(err) == pgFKViolation {
		return ErrMatchNotFound
	}
	return err
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.MatchEvent, error) {
	query := `SELECT id, match_id, type, minute, team_id, player_id, created_at FROM match_events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresEventRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT id, match_id, type, minute, team_id, player_id, created_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY minute ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.MatchEvent, 0)
	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) ListByTournamentCompleted(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.MatchEvent, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT e.id, e.match_id, e.type, e.minute, e.team_id, e.player_id, e.created_at
		FROM match_events e
		JOIN matches m ON m.id = e.match_id
		WHERE m.tournament_id = $1 AND m.status = $2
		ORDER BY e.match_id ASC, e.minute ASC, e.id ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID, models.MatchStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.MatchEvent, 0)
	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM match_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM match_events WHERE match_id IN (SELECT id FROM matches WHERE tournament_id = $1)`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}
