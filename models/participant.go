package models

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantApproved ParticipantStatus = "approved"
	ParticipantRejected ParticipantStatus = "rejected"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantPending, ParticipantApproved, ParticipantRejected:
		return true
	}
	return false
}

// Participant - заявка игрока или команды на турнир.
type Participant struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	TournamentID     uuid.UUID         `json:"tournament_id" db:"tournament_id"`
	DisplayName      string            `json:"display_name" db:"display_name"`
	TeamName         string            `json:"team_name" db:"team_name"`
	GameID           string            `json:"game_id" db:"game_id"`
	Contact          *string           `json:"contact,omitempty" db:"contact"`
	Status           ParticipantStatus `json:"status" db:"status"`
	PaymentConfirmed bool              `json:"payment_confirmed" db:"payment_confirmed"`
	Seed             *int              `json:"seed,omitempty" db:"seed"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	DecidedAt        *time.Time        `json:"decided_at,omitempty" db:"decided_at"`
}

func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	c := *p
	if p.Contact != nil {
		s := *p.Contact
		c.Contact = &s
	}
	if p.Seed != nil {
		s := *p.Seed
		c.Seed = &s
	}
	if p.DecidedAt != nil {
		d := *p.DecidedAt
		c.DecidedAt = &d
	}
	return &c
}

// Decision - итог рассмотрения заявки.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// DecisionNotice передается во внешний канал уведомлений.
type DecisionNotice struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	TournamentID  uuid.UUID `json:"tournament_id"`
	Decision      Decision  `json:"decision"`
	DisplayName   string    `json:"display_name"`
	Contact       *string   `json:"contact,omitempty"`
}

// IdempotencyKey однозначно идентифицирует решение по заявке.
func (n DecisionNotice) IdempotencyKey() string {
	return n.ParticipantID.String() + ":" + string(n.Decision)
}
