package repositories

import (
	"context"
	"errors"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrVersionConflict  = errors.New("record was modified concurrently")
	ErrConflict         = errors.New("unique constraint violation")
	ErrReferenceInvalid = errors.New("referenced record does not exist")
	ErrCheckViolation   = errors.New("check constraint violation")
)

// TournamentRecord - турнир вместе с заявками и матчами.
type TournamentRecord struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
	Matches      []*models.Match
}

// Mutation - набор изменений одного турнира, применяемый атомарно.
// Турнир и матчи сохраняются с проверкой версии: запись с Version == 1 создается,
// иначе обновляется только если в хранилище лежит Version-1.
type Mutation struct {
	Tournament          *models.Tournament
	Participants        []*models.Participant
	RemovedParticipants []uuid.UUID
	Matches             []*models.Match
}

func (m Mutation) Empty() bool {
	return m.Tournament == nil && len(m.Participants) == 0 && len(m.RemovedParticipants) == 0 && len(m.Matches) == 0
}

type Store interface {
	LoadTournament(ctx context.Context, id uuid.UUID) (*TournamentRecord, error)
	ListTournaments(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error)
	FindParticipantTournamentID(ctx context.Context, participantID uuid.UUID) (uuid.UUID, error)
	FindMatchTournamentID(ctx context.Context, matchID uuid.UUID) (uuid.UUID, error)
	Apply(ctx context.Context, mutation Mutation) error
	// MarkNotified фиксирует решение в журнале уведомлений.
	// Возвращает false, если решение уже было зафиксировано раньше.
	MarkNotified(ctx context.Context, notice models.DecisionNotice) (bool, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
}
