package brackets

import (
	"sort"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

const (
	pointsForWin  = 3
	pointsForDraw = 1
)

// ComputeStandings строит турнирную таблицу и список бомбардиров по сыгранным матчам.
// Функция чистая: одинаковый вход всегда дает одинаковый результат.
// Учитываются только завершенные матчи, оба участника которых есть в participants.
func ComputeStandings(tournamentID uuid.UUID, participants []*models.Participant, matches []*models.Match) *models.Standings {
	rows := make(map[uuid.UUID]*models.LeagueRow, len(participants))
	for _, p := range participants {
		rows[p.ID] = &models.LeagueRow{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			TeamName:      p.TeamName,
		}
	}

	for _, m := range matches {
		if !m.Finished() || !m.Ready() || m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		home, okHome := rows[*m.HomeID]
		away, okAway := rows[*m.AwayID]
		if !okHome || !okAway {
			continue
		}
		hs, as := *m.HomeScore, *m.AwayScore
		home.GoalsFor += hs
		home.GoalsAgainst += as
		away.GoalsFor += as
		away.GoalsAgainst += hs

		switch {
		case hs > as:
			home.Won++
			away.Lost++
		case hs < as:
			away.Won++
			home.Lost++
		default:
			home.Drawn++
			away.Drawn++
		}
	}

	table := make([]models.LeagueRow, 0, len(rows))
	for _, row := range rows {
		row.Played = row.Won + row.Drawn + row.Lost
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
		row.Points = pointsForWin*row.Won + pointsForDraw*row.Drawn
		table = append(table, *row)
	}

	sort.Slice(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return nameLess(a.DisplayName, a.ParticipantID, b.DisplayName, b.ParticipantID)
	})
	for i := range table {
		table[i].Position = i + 1
	}

	scorers := make([]models.ScorerRow, 0, len(table))
	for _, row := range table {
		scorers = append(scorers, models.ScorerRow{
			ParticipantID: row.ParticipantID,
			DisplayName:   row.DisplayName,
			TeamName:      row.TeamName,
			Goals:         row.GoalsFor,
		})
	}
	sort.Slice(scorers, func(i, j int) bool {
		a, b := scorers[i], scorers[j]
		if a.Goals != b.Goals {
			return a.Goals > b.Goals
		}
		return nameLess(a.DisplayName, a.ParticipantID, b.DisplayName, b.ParticipantID)
	})
	for i := range scorers {
		scorers[i].Position = i + 1
	}

	return &models.Standings{
		TournamentID: tournamentID,
		Table:        table,
		TopScorers:   scorers,
	}
}

// nameLess - алфавитный порядок, при совпадении имен решает идентификатор.
func nameLess(nameA string, idA uuid.UUID, nameB string, idB uuid.UUID) bool {
	if nameA != nameB {
		return nameA < nameB
	}
	return idA.String() < idB.String()
}
