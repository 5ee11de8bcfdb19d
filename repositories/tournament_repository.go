package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrTournamentNotFound = fmt.Errorf("tournament %w", ErrNotFound)

type TournamentRepository interface {
	Save(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	FindByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter models.TournamentFilter) ([]*models.Tournament, error)
	CountByStatus(ctx context.Context, exec SQLExecutor) (*models.DashboardStats, error)
}

type sqlTournamentRepository struct {
	db *sqlx.DB
}

func NewSQLTournamentRepository(db *sqlx.DB) TournamentRepository {
	return &sqlTournamentRepository{db: db}
}

func (r *sqlTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, format, capacity, entry_fee_cents, prize, start_date, status, legs,
	allow_result_correction, require_payment_confirmation, approved_count, champion_id, version, created_at, updated_at`

// Save создает турнир (Version == 1) или обновляет его, если версия в базе на единицу меньше.
func (r *sqlTournamentRepository) Save(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES (:id, :name, :format, :capacity, :entry_fee_cents, :prize, :start_date, :status, :legs,
			:allow_result_correction, :require_payment_confirmation, :approved_count, :champion_id, :version, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			capacity = excluded.capacity,
			entry_fee_cents = excluded.entry_fee_cents,
			prize = excluded.prize,
			start_date = excluded.start_date,
			status = excluded.status,
			legs = excluded.legs,
			allow_result_correction = excluded.allow_result_correction,
			require_payment_confirmation = excluded.require_payment_confirmation,
			approved_count = excluded.approved_count,
			champion_id = excluded.champion_id,
			version = excluded.version,
			updated_at = excluded.updated_at
		WHERE tournaments.version = excluded.version - 1`

	result, err := sqlx.NamedExecContext(ctx, r.getExecutor(exec), query, t)
	if err != nil {
		return fmt.Errorf("failed to save tournament %s: %w", t.ID, mapConstraintError(err))
	}
	return checkAffectedRows(result, fmt.Errorf("%w: tournament %s version %d", ErrVersionConflict, t.ID, t.Version))
}

func (r *sqlTournamentRepository) FindByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	e := r.getExecutor(exec)
	var t models.Tournament
	query := e.Rebind(`SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return &t, nil
}

func (r *sqlTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter models.TournamentFilter) ([]*models.Tournament, error) {
	e := r.getExecutor(exec)

	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Format != nil {
		conditions = append(conditions, "format = ?")
		args = append(args, *filter.Format)
	}

	query := `SELECT ` + tournamentColumns + ` FROM tournaments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	tournaments := make([]*models.Tournament, 0)
	if err := sqlx.SelectContext(ctx, e, &tournaments, e.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) CountByStatus(ctx context.Context, exec SQLExecutor) (*models.DashboardStats, error) {
	e := r.getExecutor(exec)
	query := e.Rebind(`
		SELECT
			COUNT(*) AS tournaments_total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS open_tournaments,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active_tournaments,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed_tournaments
		FROM tournaments`)

	var stats models.DashboardStats
	row := e.QueryRowxContext(ctx, query, models.StatusOpen, models.StatusInProgress, models.StatusCompleted)
	if err := row.Scan(&stats.TournamentsTotal, &stats.OpenTournaments, &stats.ActiveTournaments, &stats.CompletedTournaments); err != nil {
		return nil, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return &stats, nil
}
