package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate fixtures (minimum 2)")

type GenerateBracketParams struct {
	// Участники в порядке посева (первый - первый сеяный).
	Participants []uuid.UUID
	// Количество кругов для круговой системы, 1 или 2.
	Legs int
}

// BracketMatch - матч, сгенерированный до сохранения. Связи между матчами
// задаются через UID, сервис заменяет их на идентификаторы при сохранении.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int
	Label        string

	Participant1ID *uuid.UUID
	Participant2ID *uuid.UUID

	SourceMatch1UID *string
	SourceMatch2UID *string

	NextMatchUID *string
	NextSlot     int

	IsPlaceholder bool

	IsBye            bool
	ByeParticipantID *uuid.UUID
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// NewGenerator возвращает генератор для формата турнира.
func NewGenerator(format models.TournamentFormat) (BracketGenerator, error) {
	switch format {
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	default:
		return nil, fmt.Errorf("no bracket generator for format %q", format)
	}
}

func matchUID(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}
