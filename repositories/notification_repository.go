package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/jmoiron/sqlx"
)

// NotificationRepository - журнал отправленных решений по заявкам.
type NotificationRepository interface {
	Record(ctx context.Context, exec SQLExecutor, notice models.DecisionNotice) (bool, error)
}

type sqlNotificationRepository struct {
	db *sqlx.DB
}

func NewSQLNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &sqlNotificationRepository{db: db}
}

func (r *sqlNotificationRepository) Record(ctx context.Context, exec SQLExecutor, notice models.DecisionNotice) (bool, error) {
	e := exec
	if e == nil {
		e = r.db
	}
	query := e.Rebind(`
		INSERT INTO decision_notifications (idempotency_key, participant_id, decision, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING`)

	result, err := e.ExecContext(ctx, query, notice.IdempotencyKey(), notice.ParticipantID, notice.Decision, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record decision notification %s: %w", notice.IdempotencyKey(), err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows == 1, nil
}
