package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type BracketService interface {
	// GetBracket возвращает сетку турнира на выбывание.
	GetBracket(ctx context.Context, tournamentID uuid.UUID) (*models.Bracket, error)
	// Advance повторно продвигает победителя завершенного матча. Операция идемпотентна.
	Advance(ctx context.Context, matchID uuid.UUID) (*models.MatchView, error)
}

type bracketService struct {
	registry  *Registry
	publisher EventPublisher
	logger    *slog.Logger
}

func NewBracketService(registry *Registry, publisher EventPublisher, logger *slog.Logger) BracketService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &bracketService{registry: registry, publisher: publisher, logger: logger}
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID uuid.UUID) (bracket *models.Bracket, err error) {
	ctx, span := startSpan(ctx, "BracketService.GetBracket", attribute.String("tournament.id", tournamentID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	agg.mu.RLock()
	defer agg.mu.RUnlock()
	if agg.tournament.Format != models.FormatSingleElimination {
		return nil, fmt.Errorf("%w: bracket is only available for %s tournaments", ErrWrongFormat, models.FormatSingleElimination)
	}
	return buildBracket(agg), nil
}

func (s *bracketService) Advance(ctx context.Context, matchID uuid.UUID) (view *models.MatchView, err error) {
	ctx, span := startSpan(ctx, "BracketService.Advance", attribute.String("match.id", matchID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.byMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	view, err = func() (*models.MatchView, error) {
		agg.mu.RLock()
		defer agg.mu.RUnlock()

		if agg.tournament.Format != models.FormatSingleElimination {
			return nil, fmt.Errorf("%w: advancement is only defined for %s tournaments", ErrWrongFormat, models.FormatSingleElimination)
		}
		node, ok := agg.nodes[matchID]
		if !ok {
			return nil, ErrMatchNotFound
		}
		node.mu.Lock()
		defer node.mu.Unlock()

		current := node.match.Load()
		if !current.Finished() || current.WinnerID == nil {
			return nil, rejectf(ErrMatchNotReady, agg.matchView(current), "match %s has no winner yet", matchID)
		}
		if current.NextMatchID == nil {
			return agg.matchView(current), nil
		}

		adv, err := prepareAdvance(agg, current)
		if err != nil {
			return nil, err
		}
		defer adv.release()

		if adv.next == nil {
			return agg.matchView(adv.current), nil
		}
		if err := s.registry.apply(ctx, agg.id, repositories.Mutation{Matches: []*models.Match{adv.next}}); err != nil {
			return nil, err
		}
		adv.commit()
		advanced := agg.matchView(adv.next)
		events = append(events, models.NewEvent(models.EventBracketAdvanced, agg.id, advanced))
		return advanced, nil
	}()
	if err != nil {
		return nil, err
	}

	publishAll(ctx, s.publisher, events)
	return view, nil
}

// advancement - подготовленное продвижение победителя в следующий матч.
// Узел следующего матча остается заблокированным до release.
type advancement struct {
	node    *matchNode
	current *models.Match
	next    *models.Match
}

func (a *advancement) commit() {
	if a.next != nil {
		a.node.match.Store(a.next)
	}
}

func (a *advancement) release() {
	a.node.mu.Unlock()
}

// prepareAdvance блокирует следующий матч и готовит его новую версию с победителем
// finished в нужном слоте. Вызывающий уже держит блокировку узла finished.
// next == nil, если победитель уже стоит в слоте.
func prepareAdvance(agg *aggregate, finished *models.Match) (*advancement, error) {
	target, ok := agg.nodes[*finished.NextMatchID]
	if !ok {
		return nil, fmt.Errorf("next match %s of match %s is missing", *finished.NextMatchID, finished.ID)
	}
	if finished.NextSlot == nil {
		return nil, fmt.Errorf("match %s has next match but no slot", finished.ID)
	}

	target.mu.Lock()
	current := target.match.Load()
	adv := &advancement{node: target, current: current}

	slot := *finished.NextSlot
	occupant := current.SlotParticipant(slot)
	if models.SameID(occupant, finished.WinnerID) {
		return adv, nil
	}
	// Слот уже занят другим участником: исправление результата допустимо,
	// пока следующий матч не начат.
	if occupant != nil && current.Status != models.MatchPending {
		snapshot := agg.matchView(current)
		target.mu.Unlock()
		return nil, rejectf(ErrResultAlreadyFinal, snapshot, "next match %s is already %s", current.ID, current.Status)
	}

	next := current.Clone()
	winner := *finished.WinnerID
	next.SetSlot(slot, &winner)
	next.Version++
	next.UpdatedAt = now()
	adv.next = next
	return adv, nil
}

// buildBracket строит сетку из текущих матчей. Вызывается под блокировкой агрегата.
// Матчи с баем не хранятся, такие узлы первого раунда восстанавливаются по слоту второго раунда.
func buildBracket(agg *aggregate) *models.Bracket {
	bracket := &models.Bracket{
		TournamentID: agg.id,
		Rounds:       []models.BracketRound{},
		Champion:     agg.summary(agg.tournament.ChampionID),
	}

	type position struct{ round, slot int }
	byPosition := make(map[position]*models.Match)
	totalRounds := 0
	for _, m := range agg.matches() {
		byPosition[position{m.Round, m.Slot}] = m
		if m.Round > totalRounds {
			totalRounds = m.Round
		}
	}
	if totalRounds == 0 {
		return bracket
	}

	for round := 1; round <= totalRounds; round++ {
		size := 1 << (totalRounds - round)
		br := models.BracketRound{Round: round, Label: brackets.KnockoutRoundLabel(size), Nodes: make([]models.BracketNode, 0, size)}
		for pos := 1; pos <= size; pos++ {
			node := models.BracketNode{Round: round, Position: pos}
			if round > 1 {
				node.Feeders = []models.NodeRef{{Round: round - 1, Position: 2*pos - 1}, {Round: round - 1, Position: 2 * pos}}
			}
			if m, ok := byPosition[position{round, pos}]; ok {
				node.Match = m.Clone()
				node.Home = agg.summary(m.HomeID)
				node.Away = agg.summary(m.AwayID)
				node.Resolved = m.Ready()
				if m.RoundLabel != "" {
					br.Label = m.RoundLabel
				}
			} else if round == 1 {
				node.Bye = true
				node.Resolved = true
				slot := models.SlotAway
				if pos%2 == 1 {
					slot = models.SlotHome
				}
				if next, ok := byPosition[position{2, (pos + 1) / 2}]; ok {
					node.Home = agg.summary(next.SlotParticipant(slot))
				}
			}
			br.Nodes = append(br.Nodes, node)
		}
		bracket.Rounds = append(bracket.Rounds, br)
	}
	return bracket
}

// buildRounds группирует матчи по раундам для списка матчей.
func buildRounds(agg *aggregate) []models.MatchRound {
	rounds := []models.MatchRound{}
	for _, m := range agg.matches() {
		if len(rounds) == 0 || rounds[len(rounds)-1].Round != m.Round {
			rounds = append(rounds, models.MatchRound{Round: m.Round, Label: m.RoundLabel})
		}
		last := &rounds[len(rounds)-1]
		last.Matches = append(last.Matches, *agg.matchView(m))
	}
	return rounds
}
