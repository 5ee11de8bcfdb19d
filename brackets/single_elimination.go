package brackets

import (
	"context"
	"fmt"
	"math/bits"
	"sort"

	"github.com/google/uuid"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket строит полную сетку: пары первого раунда по посеву,
// заглушки для всех следующих раундов и баи для неполной сетки.
// Участник с баем сразу записывается в слот матча второго раунда.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants := params.Participants
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	size := BracketSize(n)
	numRounds := bits.TrailingZeros(uint(size))
	order := SeedOrder(size)

	byUID := make(map[string]*BracketMatch, size)
	all := make([]*BracketMatch, 0, size)

	for r := 1; r <= numRounds; r++ {
		matchesInRound := size >> r
		for pos := 1; pos <= matchesInRound; pos++ {
			bm := &BracketMatch{
				UID:          matchUID(r, pos),
				Round:        r,
				OrderInRound: pos,
				Label:        KnockoutRoundLabel(matchesInRound),
			}
			if r < numRounds {
				next := matchUID(r+1, (pos+1)/2)
				bm.NextMatchUID = &next
				bm.NextSlot = 1
				if pos%2 == 0 {
					bm.NextSlot = 2
				}
			}
			if r > 1 {
				src1 := matchUID(r-1, 2*pos-1)
				src2 := matchUID(r-1, 2*pos)
				bm.SourceMatch1UID = &src1
				bm.SourceMatch2UID = &src2
				bm.IsPlaceholder = true
			}
			byUID[bm.UID] = bm
			all = append(all, bm)
		}
	}

	// Первый раунд: пары по посеву, сеяный выше с индексом >= n означает бай.
	for pos := 1; pos <= size/2; pos++ {
		bm := byUID[matchUID(1, pos)]
		a, b := order[2*pos-2], order[2*pos-1]
		var p1, p2 *uuid.UUID
		if a < n {
			id := participants[a]
			p1 = &id
		}
		if b < n {
			id := participants[b]
			p2 = &id
		}
		bm.Participant1ID = p1
		bm.Participant2ID = p2

		if p1 != nil && p2 != nil {
			continue
		}
		if p1 == nil && p2 == nil {
			return nil, fmt.Errorf("internal error: empty pairing at round 1, match %d", pos)
		}

		advancing := p1
		if advancing == nil {
			advancing = p2
		}
		bm.IsBye = true
		bm.ByeParticipantID = advancing
		bm.Participant1ID = advancing
		bm.Participant2ID = nil

		next := byUID[*bm.NextMatchUID]
		if bm.NextSlot == 1 {
			next.Participant1ID = advancing
			next.SourceMatch1UID = nil
		} else {
			next.Participant2ID = advancing
			next.SourceMatch2UID = nil
		}
		next.IsPlaceholder = next.SourceMatch1UID != nil || next.SourceMatch2UID != nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Round != all[j].Round {
			return all[i].Round < all[j].Round
		}
		return all[i].OrderInRound < all[j].OrderInRound
	})

	return all, nil
}

// BracketSize - ближайшая степень двойки, не меньшая n.
func BracketSize(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// SeedOrder возвращает индексы посева (с нуля) в порядке позиций сетки,
// так что соседние элементы образуют пары первого раунда: 1 против N,
// и лучшие сеяные встречаются как можно позже.
func SeedOrder(size int) []int {
	order := []int{0}
	for len(order) < size {
		total := len(order) * 2
		next := make([]int, 0, total)
		for _, s := range order {
			next = append(next, s, total-1-s)
		}
		order = next
	}
	return order
}

// KnockoutRoundLabel подписывает раунд по числу матчей в нем.
func KnockoutRoundLabel(matchesInRound int) string {
	switch matchesInRound {
	case 1:
		return "Final"
	case 2:
		return "Semi-final"
	case 4:
		return "Quarter-final"
	default:
		return fmt.Sprintf("Round of %d", matchesInRound*2)
	}
}
