package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1))
	}
	return ids
}

func indexByUID(matches []*BracketMatch) map[string]*BracketMatch {
	out := make(map[string]*BracketMatch, len(matches))
	for _, m := range matches {
		out[m.UID] = m
	}
	return out
}

func TestSeedOrderPairs(t *testing.T) {
	testCases := []struct {
		name     string
		size     int
		expected [][2]int
	}{
		{name: "2 entries", size: 2, expected: [][2]int{{0, 1}}},
		{name: "4 entries", size: 4, expected: [][2]int{{0, 3}, {1, 2}}},
		{name: "8 entries", size: 8, expected: [][2]int{{0, 7}, {3, 4}, {1, 6}, {2, 5}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order := SeedOrder(tc.size)
			var pairs [][2]int
			for i := 0; i < len(order); i += 2 {
				pairs = append(pairs, [2]int{order[i], order[i+1]})
			}
			assert.Equal(t, tc.expected, pairs)
		})
	}
}

func TestBracketSize(t *testing.T) {
	assert.Equal(t, 2, BracketSize(2))
	assert.Equal(t, 4, BracketSize(3))
	assert.Equal(t, 8, BracketSize(5))
	assert.Equal(t, 8, BracketSize(8))
	assert.Equal(t, 16, BracketSize(9))
}

func TestSingleElimination_NotEnoughParticipants(t *testing.T) {
	_, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: seededIDs(1)})
	require.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestSingleElimination_FullBracket(t *testing.T) {
	ids := seededIDs(8)
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: ids})
	require.NoError(t, err)
	require.Len(t, matches, 7)

	byUID := indexByUID(matches)

	r1m1 := byUID["R1M1"]
	require.NotNil(t, r1m1)
	assert.Equal(t, ids[0], *r1m1.Participant1ID)
	assert.Equal(t, ids[7], *r1m1.Participant2ID)
	assert.Equal(t, "Quarter-final", r1m1.Label)
	require.NotNil(t, r1m1.NextMatchUID)
	assert.Equal(t, "R2M1", *r1m1.NextMatchUID)
	assert.Equal(t, 1, r1m1.NextSlot)

	r1m2 := byUID["R1M2"]
	assert.Equal(t, "R2M1", *r1m2.NextMatchUID)
	assert.Equal(t, 2, r1m2.NextSlot)

	semi := byUID["R2M2"]
	assert.True(t, semi.IsPlaceholder)
	assert.Nil(t, semi.Participant1ID)
	assert.Equal(t, "R1M3", *semi.SourceMatch1UID)
	assert.Equal(t, "R1M4", *semi.SourceMatch2UID)
	assert.Equal(t, "Semi-final", semi.Label)

	final := byUID["R3M1"]
	assert.Equal(t, "Final", final.Label)
	assert.Nil(t, final.NextMatchUID)

	for _, m := range matches {
		assert.False(t, m.IsBye, "no byes expected for a full bracket")
	}
}

func TestSingleElimination_ByesGoToTopSeeds(t *testing.T) {
	ids := seededIDs(5)
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: ids})
	require.NoError(t, err)
	require.Len(t, matches, 7, "bracket of 8 positions has 4+2+1 nodes")

	byUID := indexByUID(matches)
	byes := 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			assert.Equal(t, 1, m.Round)
			require.NotNil(t, m.ByeParticipantID)
		}
	}
	assert.Equal(t, 3, byes)

	// Seed 1 has a bye and is already waiting in the semi-final.
	semi1 := byUID["R2M1"]
	require.NotNil(t, semi1.Participant1ID)
	assert.Equal(t, ids[0], *semi1.Participant1ID)
	assert.Nil(t, semi1.SourceMatch1UID)
	// Seeds 4 and 5 play the only real round-1 match feeding the away slot.
	require.NotNil(t, semi1.SourceMatch2UID)
	assert.Equal(t, "R1M2", *semi1.SourceMatch2UID)
	assert.True(t, semi1.IsPlaceholder)

	real := byUID["R1M2"]
	assert.False(t, real.IsBye)
	assert.Equal(t, ids[3], *real.Participant1ID)
	assert.Equal(t, ids[4], *real.Participant2ID)

	// Second semi-final is fully resolved by two byes.
	semi2 := byUID["R2M2"]
	require.NotNil(t, semi2.Participant1ID)
	require.NotNil(t, semi2.Participant2ID)
	assert.Equal(t, ids[1], *semi2.Participant1ID)
	assert.Equal(t, ids[2], *semi2.Participant2ID)
	assert.False(t, semi2.IsPlaceholder)
}

func TestSingleElimination_TwoParticipants(t *testing.T) {
	ids := seededIDs(2)
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Participants: ids})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Final", matches[0].Label)
	assert.Nil(t, matches[0].NextMatchUID)
}

func TestKnockoutRoundLabel(t *testing.T) {
	assert.Equal(t, "Final", KnockoutRoundLabel(1))
	assert.Equal(t, "Semi-final", KnockoutRoundLabel(2))
	assert.Equal(t, "Quarter-final", KnockoutRoundLabel(4))
	assert.Equal(t, "Round of 16", KnockoutRoundLabel(8))
	assert.Equal(t, "Round of 32", KnockoutRoundLabel(16))
}
