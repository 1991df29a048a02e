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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentInUse        = errors.New("tournament has registrations or matches")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")

	// ErrStatusPrecondition means a conditional status update found a
	// different current status than expected; the caller lost a race
	// and should re-read.
	ErrStatusPrecondition = errors.New("tournament status precondition failed")
)

// sweepLeaseKey is the advisory lock key guarding the lifecycle sweep
// so only one runner is active at a time across processes.
const sweepLeaseKey = 0x6d646179 // "mday"

type ListTournamentsFilter struct {
	OrganizerID *int
	Status      *models.TournamentStatus
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	Delete(ctx context.Context, id int) error

	// UpdateStatusIf performs a compare-and-swap on the status column.
	// It returns ErrStatusPrecondition when the persisted status is no
	// longer `from`, which makes concurrent sweeps and user-triggered
	// transitions safe to interleave.
	UpdateStatusIf(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error

	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID *int) error

	// UpdateScheduleDefaults persists the spacing and venue chosen at
	// fixture generation so lazily created bracket rounds can reuse
	// them.
	UpdateScheduleDefaults(ctx context.Context, exec SQLExecutor, id int, defaultVenue *string, daysBetweenRounds int) error

	// ListDueForSweep returns non-terminal tournaments whose dates make
	// a sweep transition possible at `now`.
	ListDueForSweep(ctx context.Context, now time.Time) ([]*models.Tournament, error)

	// AcquireSweepLease grabs the process-wide sweep advisory lock.
	// When ok, the returned release function must be called on the same
	// connection session.
	AcquireSweepLease(ctx context.Context) (ok bool, release func(), err error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, format, organizer_id, min_teams, max_teams,
	registration_start, registration_end, start_date, end_date,
	default_venue, days_between_rounds, status, winner_team_id, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Format, &t.OrganizerID, &t.MinTeams, &t.MaxTeams,
		&t.RegistrationStart, &t.RegistrationEnd, &t.StartDate, &t.EndDate,
		&t.DefaultVenue, &t.DaysBetweenRounds, &t.Status, &t.WinnerTeamID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, format, organizer_id, min_teams, max_teams,
			registration_start, registration_end, start_date, end_date,
			default_venue, days_between_rounds, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Format, t.OrganizerID, t.MinTeams, t.MaxTeams,
		t.RegistrationStart, t.RegistrationEnd, t.StartDate, t.EndDate,
		t.DefaultVenue, t.DaysBetweenRounds, t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return r.mapError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1, description = $2, format = $3, min_teams = $4, max_teams = $5,
			registration_start = $6, registration_end = $7, start_date = $8, end_date = $9,
			default_venue = $10, days_between_rounds = $11
		WHERE id = $12`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Format, t.MinTeams, t.MaxTeams,
		t.RegistrationStart, t.RegistrationEnd, t.StartDate, t.EndDate,
		t.DefaultVenue, t.DaysBetweenRounds, t.ID,
	)
	if err != nil {
		return r.mapError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.mapError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatusIf(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.mapError(err)
	}
	return checkAffectedRows(result, ErrStatusPrecondition)
}

func (r *postgresTournamentRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET winner_team_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, winnerTeamID, id)
	if err != nil {
		return r.mapError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateScheduleDefaults(ctx context.Context, exec SQLExecutor, id int, defaultVenue *string, daysBetweenRounds int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET default_venue = $1, days_between_rounds = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, defaultVenue, daysBetweenRounds, id)
	if err != nil {
		return r.mapError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListDueForSweep(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE (status = $1 AND registration_end <= $3)
		   OR (status = $2 AND start_date <= $3)
		   OR status = $4
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query,
		models.TournamentStatusRegistrationOpen,
		models.TournamentStatusRegistrationClosed,
		now,
		models.TournamentStatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for sweep: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) AcquireSweepLease(ctx context.Context) (bool, func(), error) {
	// A dedicated connection pins the advisory lock to one session.
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to obtain connection for sweep lease: %w", err)
	}

	var got bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, sweepLeaseKey).Scan(&got); err != nil {
		conn.Close()
		return false, nil, fmt.Errorf("failed to acquire sweep lease: %w", err)
	}
	if !got {
		conn.Close()
		return false, nil, nil
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, sweepLeaseKey)
		conn.Close()
	}
	return true, release, nil
}

func (r *postgresTournamentRepository) mapError(err error) error {
	if err == nil {
		return nil
	}
	switch pqErrorCode(err) {
	case pgUniqueViolation:
		if pqConstraint(err) == "tournaments_organizer_id_name_key" {
			return ErrTournamentNameConflict
		}
	case pgFKViolation:
		if pqConstraint(err) == "tournaments_organizer_id_fkey" {
			return ErrTournamentInvalidOrg
		}
		return ErrTournamentInUse
	}
	return err
}
