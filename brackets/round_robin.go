package brackets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket creates matches for a round-robin tournament using the circle method:
// every pair meets once per leg and nobody plays twice in the same round.
// With an odd number of participants one of them sits out each round.
// The second leg repeats the schedule with home and away swapped.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if len(params.Participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	legs := params.Legs
	if legs != 2 {
		legs = 1
	}

	ring := make([]*uuid.UUID, 0, len(params.Participants)+1)
	for i := range params.Participants {
		id := params.Participants[i]
		ring = append(ring, &id)
	}
	if len(ring)%2 == 1 {
		ring = append(ring, nil) // пропуск тура
	}

	n := len(ring)
	roundsPerLeg := n - 1
	firstLeg := make([]*BracketMatch, 0, roundsPerLeg*n/2)

	for r := 1; r <= roundsPerLeg; r++ {
		order := 0
		for i := 0; i < n/2; i++ {
			home, away := ring[i], ring[n-1-i]
			if home == nil || away == nil {
				continue
			}
			if i == 0 && r%2 == 0 {
				home, away = away, home
			}
			order++
			firstLeg = append(firstLeg, &BracketMatch{
				UID:            matchUID(r, order),
				Round:          r,
				OrderInRound:   order,
				Label:          leagueRoundLabel(r),
				Participant1ID: home,
				Participant2ID: away,
			})
		}

		// Первый участник закреплен, остальные сдвигаются по кругу.
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}

	matches := firstLeg
	if legs == 2 {
		for _, m := range firstLeg {
			round := m.Round + roundsPerLeg
			matches = append(matches, &BracketMatch{
				UID:            matchUID(round, m.OrderInRound),
				Round:          round,
				OrderInRound:   m.OrderInRound,
				Label:          leagueRoundLabel(round),
				Participant1ID: m.Participant2ID,
				Participant2ID: m.Participant1ID,
			})
		}
	}

	return matches, nil
}

func leagueRoundLabel(round int) string {
	return fmt.Sprintf("Round %d", round)
}
