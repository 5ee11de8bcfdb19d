package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrMatchNotFound = fmt.Errorf("match %w", ErrNotFound)

type MatchRepository interface {
	Save(ctx context.Context, exec SQLExecutor, m *models.Match) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error)
	FindTournamentID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (uuid.UUID, error)
	CountFinished(ctx context.Context, exec SQLExecutor) (int, error)
}

type sqlMatchRepository struct {
	db *sqlx.DB
}

func NewSQLMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqlMatchRepository{db: db}
}

func (r *sqlMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round, slot, round_label, home_id, away_id, home_score, away_score,
	shootout_winner_id, winner_id, status, scheduled_at, next_match_id, next_slot, version, updated_at`

// Save создает или обновляет матч с проверкой версии, как и для турнира.
func (r *sqlMatchRepository) Save(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES (:id, :tournament_id, :round, :slot, :round_label, :home_id, :away_id, :home_score, :away_score,
			:shootout_winner_id, :winner_id, :status, :scheduled_at, :next_match_id, :next_slot, :version, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			home_id = excluded.home_id,
			away_id = excluded.away_id,
			home_score = excluded.home_score,
			away_score = excluded.away_score,
			shootout_winner_id = excluded.shootout_winner_id,
			winner_id = excluded.winner_id,
			status = excluded.status,
			scheduled_at = excluded.scheduled_at,
			version = excluded.version,
			updated_at = excluded.updated_at
		WHERE matches.version = excluded.version - 1`

	result, err := sqlx.NamedExecContext(ctx, r.getExecutor(exec), query, m)
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.ID, mapConstraintError(err))
	}
	return checkAffectedRows(result, fmt.Errorf("%w: match %s version %d", ErrVersionConflict, m.ID, m.Version))
}

func (r *sqlMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error) {
	e := r.getExecutor(exec)
	query := e.Rebind(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ? ORDER BY round, slot`)

	matches := make([]*models.Match, 0)
	if err := sqlx.SelectContext(ctx, e, &matches, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %s: %w", tournamentID, err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) FindTournamentID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (uuid.UUID, error) {
	e := r.getExecutor(exec)
	var tournamentID uuid.UUID
	if err := sqlx.GetContext(ctx, e, &tournamentID, e.Rebind(`SELECT tournament_id FROM matches WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrMatchNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find tournament of match %s: %w", id, err)
	}
	return tournamentID, nil
}

func (r *sqlMatchRepository) CountFinished(ctx context.Context, exec SQLExecutor) (int, error) {
	e := r.getExecutor(exec)
	var count int
	if err := sqlx.GetContext(ctx, e, &count, e.Rebind(`SELECT COUNT(*) FROM matches WHERE status = ?`), models.MatchFinished); err != nil {
		return 0, fmt.Errorf("failed to count finished matches: %w", err)
	}
	return count, nil
}
