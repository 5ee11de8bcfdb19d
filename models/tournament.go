package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentFormat определяет формат проведения турнира.
type TournamentFormat string

const (
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSingleElimination TournamentFormat = "single_elimination"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatRoundRobin || f == FormatSingleElimination
}

// TournamentStatus представляет статусы жизненного цикла турнира.
type TournamentStatus string

const (
	StatusDraft      TournamentStatus = "draft"
	StatusOpen       TournamentStatus = "open"
	StatusInProgress TournamentStatus = "in_progress"
	StatusCompleted  TournamentStatus = "completed"
	StatusCancelled  TournamentStatus = "cancelled"
)

// validTransitions описывает допустимые переходы между статусами.
// Дополнительные условия (участники, результаты) проверяет сервис.
var validTransitions = map[TournamentStatus][]TournamentStatus{
	StatusDraft:      {StatusOpen, StatusCancelled},
	StatusOpen:       {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s TournamentStatus) CanTransitionTo(target TournamentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s TournamentStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Tournament представляет турнир.
type Tournament struct {
	ID                         uuid.UUID        `json:"id" db:"id"`
	Name                       string           `json:"name" db:"name"`
	Format                     TournamentFormat `json:"format" db:"format"`
	Capacity                   int              `json:"capacity" db:"capacity"`
	EntryFeeCents              int64            `json:"entry_fee_cents" db:"entry_fee_cents"`
	Prize                      *string          `json:"prize,omitempty" db:"prize"`
	StartDate                  *time.Time       `json:"start_date,omitempty" db:"start_date"`
	Status                     TournamentStatus `json:"status" db:"status"`
	Legs                       int              `json:"legs" db:"legs"`
	AllowResultCorrection      bool             `json:"allow_result_correction" db:"allow_result_correction"`
	RequirePaymentConfirmation bool             `json:"require_payment_confirmation" db:"require_payment_confirmation"`
	ApprovedCount              int              `json:"approved_count" db:"approved_count"`
	ChampionID                 *uuid.UUID       `json:"champion_id,omitempty" db:"champion_id"`
	Version                    int64            `json:"version" db:"version"`
	CreatedAt                  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at" db:"updated_at"`

	// Одобренные участники в порядке посева, заполняется сервисом.
	Participants []uuid.UUID `json:"participants" db:"-"`
}

// SpotsLeft возвращает количество свободных мест.
func (t *Tournament) SpotsLeft() int {
	left := t.Capacity - t.ApprovedCount
	if left < 0 {
		return 0
	}
	return left
}

func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	c := *t
	if t.Prize != nil {
		p := *t.Prize
		c.Prize = &p
	}
	if t.StartDate != nil {
		d := *t.StartDate
		c.StartDate = &d
	}
	if t.ChampionID != nil {
		id := *t.ChampionID
		c.ChampionID = &id
	}
	if t.Participants != nil {
		c.Participants = append([]uuid.UUID(nil), t.Participants...)
	}
	return &c
}

// TournamentFilter ограничивает выборку списка турниров.
type TournamentFilter struct {
	Status *TournamentStatus
	Format *TournamentFormat
	Limit  int
	Offset int
}
