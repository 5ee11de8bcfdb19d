package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchLive     MatchStatus = "live"
	MatchFinished MatchStatus = "finished"
)

const (
	MinScore = 0
	MaxScore = 99
)

// Слоты матча: победитель уходит в NextSlot следующего матча.
const (
	SlotHome = 1
	SlotAway = 2
)

type Match struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	TournamentID     uuid.UUID   `json:"tournament_id" db:"tournament_id"`
	Round            int         `json:"round" db:"round"`
	Slot             int         `json:"slot" db:"slot"`
	RoundLabel       string      `json:"round_label" db:"round_label"`
	HomeID           *uuid.UUID  `json:"home_id,omitempty" db:"home_id"`
	AwayID           *uuid.UUID  `json:"away_id,omitempty" db:"away_id"`
	HomeScore        *int        `json:"home_score,omitempty" db:"home_score"`
	AwayScore        *int        `json:"away_score,omitempty" db:"away_score"`
	ShootoutWinnerID *uuid.UUID  `json:"shootout_winner_id,omitempty" db:"shootout_winner_id"`
	WinnerID         *uuid.UUID  `json:"winner_id,omitempty" db:"winner_id"`
	Status           MatchStatus `json:"status" db:"status"`
	ScheduledAt      *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	NextMatchID      *uuid.UUID  `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot         *int        `json:"next_slot,omitempty" db:"next_slot"`
	Version          int64       `json:"version" db:"version"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// Ready - оба слота определены, матч можно играть.
func (m *Match) Ready() bool {
	return m.HomeID != nil && m.AwayID != nil
}

func (m *Match) Finished() bool {
	return m.Status == MatchFinished
}

// SlotParticipant возвращает участника в слоте SlotHome/SlotAway.
func (m *Match) SlotParticipant(slot int) *uuid.UUID {
	if slot == SlotHome {
		return m.HomeID
	}
	return m.AwayID
}

func (m *Match) SetSlot(slot int, participantID *uuid.UUID) {
	if slot == SlotHome {
		m.HomeID = participantID
		return
	}
	m.AwayID = participantID
}

// Involves сообщает, играет ли участник в этом матче.
func (m *Match) Involves(participantID uuid.UUID) bool {
	return (m.HomeID != nil && *m.HomeID == participantID) ||
		(m.AwayID != nil && *m.AwayID == participantID)
}

func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.HomeID = cloneID(m.HomeID)
	c.AwayID = cloneID(m.AwayID)
	c.ShootoutWinnerID = cloneID(m.ShootoutWinnerID)
	c.WinnerID = cloneID(m.WinnerID)
	c.NextMatchID = cloneID(m.NextMatchID)
	c.HomeScore = cloneInt(m.HomeScore)
	c.AwayScore = cloneInt(m.AwayScore)
	c.NextSlot = cloneInt(m.NextSlot)
	if m.ScheduledAt != nil {
		t := *m.ScheduledAt
		c.ScheduledAt = &t
	}
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// SameID сравнивает два nullable идентификатора.
func SameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
