package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dorofeev01/matchday-system/models"
)

var (
	ErrRegistrationNotFound    = errors.New("team registration not found")
	ErrRegistrationConflict    = errors.New("team is already registered for this tournament")
	ErrRegistrationInvalidTeam = errors.New("invalid team reference")
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.TeamRegistration) error
	GetByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.TeamRegistration, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.TeamRegistration, error)
	CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.RegistrationStatus) (int, error)

	// UpdateStatusIf transitions a registration only when its persisted
	// status still matches `from`; zero rows affected surfaces as
	// ErrRegistrationNotFound precondition failure for the caller.
	UpdateStatusIf(ctx context.Context, exec SQLExecutor, id int, from, to models.RegistrationStatus, decidedAt time.Time) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanRegistration(row interface{ Scan(...interface{}) error }) (*models.TeamRegistration, error) {
	reg := &models.TeamRegistration{}
	err := row.Scan(&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.Status, &reg.RequestedAt, &reg.DecidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.TeamRegistration) error {
	query := `
		INSERT INTO team_registrations (tournament_id, team_id, status, requested_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		reg.TournamentID, reg.TeamID, reg.Status, reg.RequestedAt,
	).Scan(&reg.ID)
	if err != nil {
		switch pqErrorCode(err) {
		case pgUniqueViolation:
			return ErrRegistrationConflict
		case pgFKViolation:
			if pqConstraint(err) == "team_registrations_team_id_fkey" {
				return ErrRegistrationInvalidTeam
			}
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.TeamRegistration, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, team_id, status, requested_at, decided_at
		FROM team_registrations
		WHERE tournament_id = $1 AND team_id = $2`
	return scanRegistration(executor.QueryRowContext(ctx, query, tournamentID, teamID))
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.TeamRegistration, error) {
	query := `
		SELECT id, tournament_id, team_id, status, requested_at, decided_at
		FROM team_registrations
		WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	// Approval order is the deterministic seed for fixture generation,
	// so the ordering here must be total and stable.
	query += ` ORDER BY decided_at ASC NULLS LAST, requested_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registrations := make([]*models.TeamRegistration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func (r *postgresRegistrationRepository) CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.RegistrationStatus) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_registrations WHERE tournament_id = $1 AND status = $2`,
		tournamentID, status,
	).Scan(&count)
	return count, err
}

func (r *postgresRegistrationRepository) UpdateStatusIf(ctx context.Context, exec SQLExecutor, id int, from, to models.RegistrationStatus, decidedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE team_registrations
		SET status = $1, decided_at = $2
		WHERE id = $3 AND status = $4`
	result, err := executor.ExecContext(ctx, query, to, decidedAt, id, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
