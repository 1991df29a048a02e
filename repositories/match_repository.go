package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dorofeev01/matchday-system/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchInvalidTeam = errors.New("invalid team reference on match")
)

type ListMatchesFilter struct {
	Round  *int
	Status *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByBracketSlot(ctx context.Context, exec SQLExecutor, tournamentID, round, slot int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error)

	// CountBlocking counts matches that keep the tournament from
	// completing: Scheduled or InProgress, plus Postponed ones before
	// the tournament end date has passed.
	CountBlocking(ctx context.Context, exec SQLExecutor, tournamentID int, endDate, now time.Time) (int, error)

	// CountDeparted counts matches that have left the Scheduled status;
	// regeneration is only legal while this is zero.
	CountDeparted(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)

	CountAll(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)

	RecordResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	Reschedule(ctx context.Context, exec SQLExecutor, id int, date time.Time) error
	FillSlot(ctx context.Context, exec SQLExecutor, id int, home bool, teamID int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, home_team_id, away_team_id, round, slot,
	scheduled_date, venue, status, home_score, away_score, winner_team_id, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.HomeTeamID, &m.AwayTeamID, &m.Round, &m.Slot,
		&m.ScheduledDate, &m.Venue, &m.Status, &m.HomeScore, &m.AwayScore, &m.WinnerTeamID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			tournament_id, home_team_id, away_team_id, round, slot,
			scheduled_date, venue, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.HomeTeamID, m.AwayTeamID, m.Round, m.Slot,
		m.ScheduledDate, m.Venue, m.Status,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if pqErrorCode(err) == pgFKViolation {
			return ErrMatchInvalidTeam
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByBracketSlot(ctx context.Context, exec SQLExecutor, tournamentID, round, slot int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND round = $2 AND slot = $3`
	return scanMatch(executor.QueryRowContext(ctx, query, tournamentID, round, slot))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	argID := 2

	if filter.Round != nil {
		query += fmt.Sprintf(" AND round = $%d", argID)
		args = append(args, *filter.Round)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
	}
	query += " ORDER BY round ASC, slot ASC, id ASC"

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CountBlocking(ctx context.Context, exec SQLExecutor, tournamentID int, endDate, now time.Time) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1
		  AND (status IN ($2, $3) OR (status = $4 AND $5 < $6))`
	var count int
	err := executor.QueryRowContext(ctx, query,
		tournamentID,
		models.MatchStatusScheduled, models.MatchStatusInProgress,
		models.MatchStatusPostponed, now, endDate,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) CountDeparted(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status <> $2`
	var count int
	err := executor.QueryRowContext(ctx, query, tournamentID, models.MatchStatusScheduled).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) CountAll(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches WHERE tournament_id = $1`, tournamentID).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) RecordResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET home_score = $1, away_score = $2, winner_team_id = $3, status = $4
		WHERE id = $5 AND status IN ($6, $7)`
	result, err := executor.ExecContext(ctx, query,
		m.HomeScore, m.AwayScore, m.WinnerTeamID, models.MatchStatusCompleted,
		m.ID, models.MatchStatusScheduled, models.MatchStatusInProgress,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Reschedule(ctx context.Context, exec SQLExecutor, id int, date time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET scheduled_date = $1, status = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, date, models.MatchStatusScheduled, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, id int, home bool, teamID int) error {
	executor := r.getExecutor(exec)
	column := "away_team_id"
	if home {
		column = "home_team_id"
	}
	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2 AND ` + column + ` IS NULL`
	result, err := executor.ExecContext(ctx, query, teamID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	return err
}
