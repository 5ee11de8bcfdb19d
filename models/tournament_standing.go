package models

import "github.com/google/uuid"

// LeagueRow - строка турнирной таблицы. Не хранится в БД, вычисляется из матчей.
type LeagueRow struct {
	Position       int       `json:"position"`
	ParticipantID  uuid.UUID `json:"participant_id"`
	DisplayName    string    `json:"display_name"`
	TeamName       string    `json:"team_name"`
	Played         int       `json:"played"`
	Won            int       `json:"won"`
	Drawn          int       `json:"drawn"`
	Lost           int       `json:"lost"`
	GoalsFor       int       `json:"goals_for"`
	GoalsAgainst   int       `json:"goals_against"`
	GoalDifference int       `json:"goal_difference"`
	Points         int       `json:"points"`
}

type ScorerRow struct {
	Position      int       `json:"position"`
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	TeamName      string    `json:"team_name"`
	Goals         int       `json:"goals"`
}

type Standings struct {
	TournamentID uuid.UUID   `json:"tournament_id"`
	Final        bool        `json:"final"`
	Table        []LeagueRow `json:"table"`
	TopScorers   []ScorerRow `json:"top_scorers"`
}
