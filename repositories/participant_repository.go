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

var ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)

type ParticipantRepository interface {
	Save(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Participant, error)
	FindTournamentID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (uuid.UUID, error)
	CountApproved(ctx context.Context, exec SQLExecutor) (int, error)
}

type sqlParticipantRepository struct {
	db *sqlx.DB
}

func NewSQLParticipantRepository(db *sqlx.DB) ParticipantRepository {
	return &sqlParticipantRepository{db: db}
}

func (r *sqlParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `id, tournament_id, display_name, team_name, game_id, contact, status,
	payment_confirmed, seed, created_at, decided_at`

func (r *sqlParticipantRepository) Save(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (` + participantColumns + `)
		VALUES (:id, :tournament_id, :display_name, :team_name, :game_id, :contact, :status,
			:payment_confirmed, :seed, :created_at, :decided_at)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			team_name = excluded.team_name,
			game_id = excluded.game_id,
			contact = excluded.contact,
			status = excluded.status,
			payment_confirmed = excluded.payment_confirmed,
			seed = excluded.seed,
			decided_at = excluded.decided_at`

	if _, err := sqlx.NamedExecContext(ctx, r.getExecutor(exec), query, p); err != nil {
		return fmt.Errorf("failed to save participant %s: %w", p.ID, mapConstraintError(err))
	}
	return nil
}

func (r *sqlParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	e := r.getExecutor(exec)
	result, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM participants WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %s: %w", id, mapConstraintError(err))
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *sqlParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Participant, error) {
	e := r.getExecutor(exec)
	query := e.Rebind(`SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = ? ORDER BY created_at, id`)

	participants := make([]*models.Participant, 0)
	if err := sqlx.SelectContext(ctx, e, &participants, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %s: %w", tournamentID, err)
	}
	return participants, nil
}

func (r *sqlParticipantRepository) FindTournamentID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (uuid.UUID, error) {
	e := r.getExecutor(exec)
	var tournamentID uuid.UUID
	if err := sqlx.GetContext(ctx, e, &tournamentID, e.Rebind(`SELECT tournament_id FROM participants WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrParticipantNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find tournament of participant %s: %w", id, err)
	}
	return tournamentID, nil
}

func (r *sqlParticipantRepository) CountApproved(ctx context.Context, exec SQLExecutor) (int, error) {
	e := r.getExecutor(exec)
	var count int
	if err := sqlx.GetContext(ctx, e, &count, e.Rebind(`SELECT COUNT(*) FROM participants WHERE status = ?`), models.ParticipantApproved); err != nil {
		return 0, fmt.Errorf("failed to count approved participants: %w", err)
	}
	return count, nil
}
