package models

import "github.com/google/uuid"

// ParticipantSummary - краткое представление участника для сетки и списка матчей.
type ParticipantSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	TeamName    string    `json:"team_name"`
	Seed        *int      `json:"seed,omitempty"`
}

type NodeRef struct {
	Round    int `json:"round"`
	Position int `json:"position"`
}

// BracketNode - узел сетки на выбывание. Для узла с баем Match == nil.
type BracketNode struct {
	Round    int                 `json:"round"`
	Position int                 `json:"position"`
	Bye      bool                `json:"bye"`
	Match    *Match              `json:"match,omitempty"`
	Home     *ParticipantSummary `json:"home,omitempty"`
	Away     *ParticipantSummary `json:"away,omitempty"`
	Resolved bool                `json:"resolved"`
	Feeders  []NodeRef           `json:"feeders,omitempty"`
}

type BracketRound struct {
	Round int           `json:"round"`
	Label string        `json:"label"`
	Nodes []BracketNode `json:"nodes"`
}

type Bracket struct {
	TournamentID uuid.UUID           `json:"tournament_id"`
	Rounds       []BracketRound      `json:"rounds"`
	Champion     *ParticipantSummary `json:"champion,omitempty"`
}

// MatchView - матч с разрешенными именами участников.
type MatchView struct {
	*Match
	Home *ParticipantSummary `json:"home,omitempty"`
	Away *ParticipantSummary `json:"away,omitempty"`
}

type MatchRound struct {
	Round   int         `json:"round"`
	Label   string      `json:"label"`
	Matches []MatchView `json:"matches"`
}

// TournamentSnapshot - итоговое состояние турнира для архивации.
type TournamentSnapshot struct {
	Tournament   *Tournament    `json:"tournament"`
	Participants []*Participant `json:"participants"`
	Matches      []*Match       `json:"matches"`
	Standings    *Standings     `json:"standings,omitempty"`
	Bracket      *Bracket       `json:"bracket,omitempty"`
}
