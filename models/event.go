package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTournamentStatusChanged EventType = "tournament.status_changed"
	EventRegistrationSubmitted   EventType = "registration.submitted"
	EventRegistrationDecided     EventType = "registration.decided"
	EventMatchUpdated            EventType = "match.updated"
	EventBracketAdvanced         EventType = "bracket.advanced"
	EventChampionDecided         EventType = "champion.decided"
	EventStandingsFrozen         EventType = "standings.frozen"
)

// Event рассылается подписчикам комнаты турнира через WebSocket.
type Event struct {
	Type         EventType   `json:"type"`
	TournamentID uuid.UUID   `json:"tournament_id"`
	Payload      interface{} `json:"payload"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

func NewEvent(eventType EventType, tournamentID uuid.UUID, payload interface{}) Event {
	return Event{
		Type:         eventType,
		TournamentID: tournamentID,
		Payload:      payload,
		OccurredAt:   time.Now().UTC(),
	}
}
