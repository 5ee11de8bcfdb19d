package brackets

import (
	"errors"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

var (
	ErrTieUndecided        = errors.New("knockout match ended in a tie without a shootout winner")
	ErrInvalidShootoutPick = errors.New("shootout winner is not a participant of the match")
	ErrResultIncomplete    = errors.New("match has no complete result")
)

// KnockoutWinner определяет победителя матча на выбывание.
// Ничья допустима только вместе с победителем серии пенальти.
func KnockoutWinner(m *models.Match, shootoutWinner *uuid.UUID) (*uuid.UUID, error) {
	if !m.Ready() || m.HomeScore == nil || m.AwayScore == nil {
		return nil, ErrResultIncomplete
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		id := *m.HomeID
		return &id, nil
	case *m.AwayScore > *m.HomeScore:
		id := *m.AwayID
		return &id, nil
	}
	if shootoutWinner == nil {
		return nil, ErrTieUndecided
	}
	if !m.Involves(*shootoutWinner) {
		return nil, ErrInvalidShootoutPick
	}
	id := *shootoutWinner
	return &id, nil
}

// LeagueWinner возвращает победителя матча круговой системы, nil при ничьей.
func LeagueWinner(m *models.Match) *uuid.UUID {
	if !m.Ready() || m.HomeScore == nil || m.AwayScore == nil {
		return nil
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		id := *m.HomeID
		return &id
	case *m.AwayScore > *m.HomeScore:
		id := *m.AwayID
		return &id
	}
	return nil
}
