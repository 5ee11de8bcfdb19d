package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// matchNode - матч внутри агрегата. mu сериализует изменения матча,
// match читается без блокировки.
type matchNode struct {
	mu    sync.Mutex
	match atomic.Pointer[models.Match]
}

// aggregate - турнир вместе с заявками и матчами, граница согласованности.
//
// Изменения турнира и заявок идут под mu.Lock. Операции с матчами берут mu.RLock
// и блокировку своего узла, поэтому разные матчи обновляются параллельно,
// а отмена турнира дожидается завершения всех начатых операций с матчами.
// Узлы блокируются в порядке возрастания раунда.
type aggregate struct {
	id           uuid.UUID
	mu           sync.RWMutex
	tournament   *models.Tournament
	participants map[uuid.UUID]*models.Participant
	order        []uuid.UUID
	nodes        map[uuid.UUID]*matchNode
	matchOrder   []uuid.UUID
}

func newAggregate(record *repositories.TournamentRecord) *aggregate {
	a := &aggregate{
		id:           record.Tournament.ID,
		tournament:   record.Tournament,
		participants: make(map[uuid.UUID]*models.Participant, len(record.Participants)),
	}
	for _, p := range record.Participants {
		a.putParticipant(p)
	}
	a.setMatches(record.Matches)
	return a
}

func (a *aggregate) putParticipant(p *models.Participant) {
	if _, ok := a.participants[p.ID]; !ok {
		a.order = append(a.order, p.ID)
	}
	a.participants[p.ID] = p
}

func (a *aggregate) removeParticipant(id uuid.UUID) {
	delete(a.participants, id)
	for i, pid := range a.order {
		if pid == id {
			a.order = append(a.order[:i:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *aggregate) setMatches(matches []*models.Match) {
	sorted := append([]*models.Match(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Round != sorted[j].Round {
			return sorted[i].Round < sorted[j].Round
		}
		return sorted[i].Slot < sorted[j].Slot
	})

	a.nodes = make(map[uuid.UUID]*matchNode, len(sorted))
	a.matchOrder = make([]uuid.UUID, 0, len(sorted))
	for _, m := range sorted {
		node := &matchNode{}
		node.match.Store(m)
		a.nodes[m.ID] = node
		a.matchOrder = append(a.matchOrder, m.ID)
	}
}

// participantList возвращает заявки в порядке подачи.
func (a *aggregate) participantList(status *models.ParticipantStatus) []*models.Participant {
	out := make([]*models.Participant, 0, len(a.order))
	for _, id := range a.order {
		p := a.participants[id]
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// approvedParticipants - одобренные участники в порядке посева.
func (a *aggregate) approvedParticipants() []*models.Participant {
	status := models.ParticipantApproved
	approved := a.participantList(&status)
	sort.SliceStable(approved, func(i, j int) bool {
		return seedOf(approved[i]) < seedOf(approved[j])
	})
	return approved
}

func seedOf(p *models.Participant) int {
	if p.Seed == nil {
		return int(^uint(0) >> 1)
	}
	return *p.Seed
}

func (a *aggregate) matches() []*models.Match {
	out := make([]*models.Match, 0, len(a.matchOrder))
	for _, id := range a.matchOrder {
		out = append(out, a.nodes[id].match.Load())
	}
	return out
}

func (a *aggregate) hasFinishedMatch() bool {
	for _, id := range a.matchOrder {
		if a.nodes[id].match.Load().Finished() {
			return true
		}
	}
	return false
}

func (a *aggregate) summary(id *uuid.UUID) *models.ParticipantSummary {
	if id == nil {
		return nil
	}
	p, ok := a.participants[*id]
	if !ok {
		return &models.ParticipantSummary{ID: *id}
	}
	return &models.ParticipantSummary{ID: p.ID, DisplayName: p.DisplayName, TeamName: p.TeamName, Seed: p.Seed}
}

func (a *aggregate) matchView(m *models.Match) *models.MatchView {
	return &models.MatchView{Match: m.Clone(), Home: a.summary(m.HomeID), Away: a.summary(m.AwayID)}
}

// tournamentView - копия турнира со списком одобренных участников.
func (a *aggregate) tournamentView() *models.Tournament {
	t := a.tournament.Clone()
	approved := a.approvedParticipants()
	t.Participants = make([]uuid.UUID, 0, len(approved))
	for _, p := range approved {
		t.Participants = append(t.Participants, p.ID)
	}
	return t
}

// Registry держит загруженные агрегаты турниров.
type Registry struct {
	store  repositories.Store
	logger *slog.Logger

	mu    sync.Mutex
	items map[uuid.UUID]*aggregate
	loads singleflight.Group
}

func NewRegistry(store repositories.Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		items:  make(map[uuid.UUID]*aggregate),
	}
}

func (r *Registry) cached(id uuid.UUID) *aggregate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

// get возвращает агрегат турнира, загружая его из хранилища один раз
// даже при одновременных запросах.
func (r *Registry) get(ctx context.Context, id uuid.UUID) (*aggregate, error) {
	if a := r.cached(id); a != nil {
		return a, nil
	}

	v, err, _ := r.loads.Do(id.String(), func() (interface{}, error) {
		if a := r.cached(id); a != nil {
			return a, nil
		}
		record, err := r.store.LoadTournament(ctx, id)
		if err != nil {
			return nil, mapStoreError(err, ErrTournamentNotFound)
		}
		a := newAggregate(record)

		r.mu.Lock()
		if existing, ok := r.items[id]; ok {
			a = existing
		} else {
			r.items[id] = a
		}
		r.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*aggregate), nil
}

func (r *Registry) add(a *aggregate) {
	r.mu.Lock()
	r.items[a.id] = a
	r.mu.Unlock()
}

func (r *Registry) evict(id uuid.UUID) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
}

func (r *Registry) byParticipant(ctx context.Context, participantID uuid.UUID) (*aggregate, error) {
	tournamentID, err := r.store.FindParticipantTournamentID(ctx, participantID)
	if err != nil {
		return nil, mapStoreError(err, ErrParticipantNotFound)
	}
	return r.get(ctx, tournamentID)
}

func (r *Registry) byMatch(ctx context.Context, matchID uuid.UUID) (*aggregate, error) {
	tournamentID, err := r.store.FindMatchTournamentID(ctx, matchID)
	if err != nil {
		return nil, mapStoreError(err, ErrMatchNotFound)
	}
	return r.get(ctx, tournamentID)
}

// apply сохраняет изменения агрегата. При конфликте версий агрегат выгружается,
// следующий запрос загрузит актуальное состояние из хранилища.
func (r *Registry) apply(ctx context.Context, tournamentID uuid.UUID, mutation repositories.Mutation) error {
	err := r.store.Apply(ctx, mutation)
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrVersionConflict) {
		r.logger.WarnContext(ctx, "tournament aggregate is stale, evicting",
			slog.String("tournament_id", tournamentID.String()), slog.Any("error", err))
		r.evict(tournamentID)
	}
	return mapStoreError(err, ErrNotFound)
}
