package brackets

import (
	"testing"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(name string) *models.Participant {
	return &models.Participant{ID: uuid.New(), DisplayName: name, Status: models.ParticipantApproved}
}

func finished(home, away *models.Participant, hs, as int) *models.Match {
	h, a := home.ID, away.ID
	return &models.Match{
		ID:        uuid.New(),
		HomeID:    &h,
		AwayID:    &a,
		HomeScore: &hs,
		AwayScore: &as,
		Status:    models.MatchFinished,
	}
}

func rowFor(t *testing.T, s *models.Standings, id uuid.UUID) models.LeagueRow {
	t.Helper()
	for _, r := range s.Table {
		if r.ParticipantID == id {
			return r
		}
	}
	t.Fatalf("no row for participant %s", id)
	return models.LeagueRow{}
}

func TestComputeStandings_PointsAndOrdering(t *testing.T) {
	x := participant("Xavier")
	y := participant("Yuki")
	fillers := make([]*models.Participant, 6)
	for i := range fillers {
		fillers[i] = participant(string(rune('A'+i)) + "-filler")
	}

	var matches []*models.Match
	// X: 5 wins, 1 draw, goals 18-5.
	matches = append(matches,
		finished(x, fillers[0], 4, 1),
		finished(x, fillers[1], 3, 1),
		finished(x, fillers[2], 4, 0),
		finished(x, fillers[3], 3, 1),
		finished(x, fillers[4], 2, 0),
		finished(x, y, 2, 2),
	)
	// Y: 4 wins, 2 draws, goals 14-6.
	matches = append(matches,
		finished(y, fillers[0], 3, 1),
		finished(y, fillers[1], 3, 1),
		finished(y, fillers[2], 3, 1),
		finished(y, fillers[3], 3, 1),
		finished(y, fillers[4], 0, 0),
	)

	all := append([]*models.Participant{x, y}, fillers...)
	standings := ComputeStandings(uuid.New(), all, matches)
	require.Len(t, standings.Table, len(all))

	rx := rowFor(t, standings, x.ID)
	assert.Equal(t, 5, rx.Won)
	assert.Equal(t, 1, rx.Drawn)
	assert.Equal(t, 0, rx.Lost)
	assert.Equal(t, 18, rx.GoalsFor)
	assert.Equal(t, 5, rx.GoalsAgainst)
	assert.Equal(t, 16, rx.Points)

	ry := rowFor(t, standings, y.ID)
	assert.Equal(t, 4, ry.Won)
	assert.Equal(t, 2, ry.Drawn)
	assert.Equal(t, 14, ry.GoalsFor)
	assert.Equal(t, 6, ry.GoalsAgainst)
	assert.Equal(t, 14, ry.Points)

	assert.Equal(t, x.ID, standings.Table[0].ParticipantID)
	assert.Equal(t, y.ID, standings.Table[1].ParticipantID)

	for i, row := range standings.Table {
		assert.Equal(t, i+1, row.Position)
		assert.Equal(t, 3*row.Won+row.Drawn, row.Points)
		assert.Equal(t, row.GoalsFor-row.GoalsAgainst, row.GoalDifference)
		assert.Equal(t, row.Won+row.Drawn+row.Lost, row.Played)
	}
}

func TestComputeStandings_TieBreakChain(t *testing.T) {
	alpha := participant("Alpha")
	bravo := participant("Bravo")
	charlie := participant("Charlie")
	delta := participant("Delta")

	testCases := []struct {
		name     string
		matches  []*models.Match
		expected []uuid.UUID
	}{
		{
			name: "goal difference breaks equal points",
			matches: []*models.Match{
				finished(alpha, charlie, 1, 0),
				finished(bravo, delta, 3, 0),
			},
			expected: []uuid.UUID{bravo.ID, alpha.ID},
		},
		{
			name: "goals for breaks equal difference",
			matches: []*models.Match{
				finished(alpha, charlie, 1, 0),
				finished(bravo, delta, 2, 1),
			},
			expected: []uuid.UUID{bravo.ID, alpha.ID},
		},
		{
			name: "name breaks identical records",
			matches: []*models.Match{
				finished(bravo, delta, 2, 1),
				finished(alpha, charlie, 2, 1),
			},
			expected: []uuid.UUID{alpha.ID, bravo.ID},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := ComputeStandings(uuid.New(), []*models.Participant{delta, charlie, bravo, alpha}, tc.matches)
			got := []uuid.UUID{s.Table[0].ParticipantID, s.Table[1].ParticipantID}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestComputeStandings_IgnoresUnfinishedMatches(t *testing.T) {
	a := participant("A")
	b := participant("B")
	live := finished(a, b, 5, 0)
	live.Status = models.MatchLive

	s := ComputeStandings(uuid.New(), []*models.Participant{a, b}, []*models.Match{live})
	for _, row := range s.Table {
		assert.Zero(t, row.Played)
		assert.Zero(t, row.Points)
	}
}

func TestComputeStandings_IsPure(t *testing.T) {
	a := participant("A")
	b := participant("B")
	c := participant("C")
	matches := []*models.Match{finished(a, b, 1, 1), finished(b, c, 2, 0), finished(c, a, 0, 3)}
	ps := []*models.Participant{a, b, c}

	first := ComputeStandings(uuid.Nil, ps, matches)
	second := ComputeStandings(uuid.Nil, ps, matches)
	assert.Equal(t, first, second)
}

func TestComputeStandings_TopScorers(t *testing.T) {
	a := participant("Anna")
	b := participant("Boris")
	c := participant("Clara")
	matches := []*models.Match{
		finished(a, b, 2, 4),
		finished(c, a, 1, 2),
		finished(b, c, 0, 3),
	}

	s := ComputeStandings(uuid.New(), []*models.Participant{a, b, c}, matches)
	require.Len(t, s.TopScorers, 3)
	// Все забили по 4, порядок по имени.
	assert.Equal(t, a.ID, s.TopScorers[0].ParticipantID)
	assert.Equal(t, 4, s.TopScorers[0].Goals)
	assert.Equal(t, b.ID, s.TopScorers[1].ParticipantID)
	assert.Equal(t, c.ID, s.TopScorers[2].ParticipantID)
	assert.Equal(t, 3, s.TopScorers[2].Position)
}
