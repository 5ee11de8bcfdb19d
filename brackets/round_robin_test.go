package brackets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() < b.String() {
		return [2]uuid.UUID{a, b}
	}
	return [2]uuid.UUID{b, a}
}

func TestRoundRobin_Schedule(t *testing.T) {
	testCases := []struct {
		name           string
		participants   int
		expectedRounds int
	}{
		{name: "two participants", participants: 2, expectedRounds: 1},
		{name: "even count", participants: 6, expectedRounds: 5},
		{name: "odd count sits one out per round", participants: 5, expectedRounds: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ids := seededIDs(tc.participants)
			matches, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: ids, Legs: 1})
			require.NoError(t, err)

			expectedMatches := tc.participants * (tc.participants - 1) / 2
			require.Len(t, matches, expectedMatches)

			pairs := make(map[[2]uuid.UUID]int)
			playedInRound := make(map[int]map[uuid.UUID]bool)
			maxRound := 0
			for _, m := range matches {
				require.NotNil(t, m.Participant1ID)
				require.NotNil(t, m.Participant2ID)
				assert.NotEqual(t, *m.Participant1ID, *m.Participant2ID)
				pairs[pairKey(*m.Participant1ID, *m.Participant2ID)]++

				if playedInRound[m.Round] == nil {
					playedInRound[m.Round] = make(map[uuid.UUID]bool)
				}
				for _, id := range []uuid.UUID{*m.Participant1ID, *m.Participant2ID} {
					assert.False(t, playedInRound[m.Round][id], "participant plays twice in round %d", m.Round)
					playedInRound[m.Round][id] = true
				}
				if m.Round > maxRound {
					maxRound = m.Round
				}
			}

			assert.Len(t, pairs, expectedMatches, "every unordered pair meets exactly once")
			for _, count := range pairs {
				assert.Equal(t, 1, count)
			}
			assert.Equal(t, tc.expectedRounds, maxRound)
		})
	}
}

func TestRoundRobin_SecondLegSwapsHomeAndAway(t *testing.T) {
	ids := seededIDs(4)
	matches, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: ids, Legs: 2})
	require.NoError(t, err)
	require.Len(t, matches, 12)

	home := make(map[[2]uuid.UUID]bool)
	for _, m := range matches {
		key := [2]uuid.UUID{*m.Participant1ID, *m.Participant2ID}
		assert.False(t, home[key], "same fixture with same home side generated twice")
		home[key] = true
	}
	assert.Equal(t, "Round 4", matches[6].Label)
	assert.Equal(t, 6, matches[len(matches)-1].Round)
}

func TestRoundRobin_NotEnoughParticipants(t *testing.T) {
	_, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: seededIDs(1)})
	require.ErrorIs(t, err, ErrNotEnoughParticipants)
}
