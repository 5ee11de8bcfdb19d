package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

// MemoryStore хранит данные в памяти процесса. Подходит для тестов и локального запуска.
// Все значения копируются на входе и выходе.
type MemoryStore struct {
	mu            sync.RWMutex
	tournaments   map[uuid.UUID]*models.Tournament
	participants  map[uuid.UUID]*models.Participant
	matches       map[uuid.UUID]*models.Match
	notifications map[string]struct{}
	failNext      error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tournaments:   make(map[uuid.UUID]*models.Tournament),
		participants:  make(map[uuid.UUID]*models.Participant),
		matches:       make(map[uuid.UUID]*models.Match),
		notifications: make(map[string]struct{}),
	}
}

// FailNextApply заставляет следующий Apply вернуть err.
func (s *MemoryStore) FailNextApply(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *MemoryStore) LoadTournament(ctx context.Context, id uuid.UUID) (*TournamentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	record := &TournamentRecord{Tournament: t.Clone()}
	for _, p := range s.participants {
		if p.TournamentID == id {
			record.Participants = append(record.Participants, p.Clone())
		}
	}
	for _, m := range s.matches {
		if m.TournamentID == id {
			record.Matches = append(record.Matches, m.Clone())
		}
	}
	sort.Slice(record.Participants, func(i, j int) bool {
		a, b := record.Participants[i], record.Participants[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	sort.Slice(record.Matches, func(i, j int) bool {
		a, b := record.Matches[i], record.Matches[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Slot < b.Slot
	})
	return record, nil
}

func (s *MemoryStore) ListTournaments(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Format != nil && t.Format != *filter.Format {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return []*models.Tournament{}, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[filter.Offset:end]
	}
	return out, nil
}

func (s *MemoryStore) FindParticipantTournamentID(ctx context.Context, participantID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantID]
	if !ok {
		return uuid.Nil, ErrParticipantNotFound
	}
	return p.TournamentID, nil
}

func (s *MemoryStore) FindMatchTournamentID(ctx context.Context, matchID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return uuid.Nil, ErrMatchNotFound
	}
	return m.TournamentID, nil
}

// Apply проверяет все версии до записи, чтобы изменения применялись целиком или никак.
func (s *MemoryStore) Apply(ctx context.Context, mutation Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	if t := mutation.Tournament; t != nil {
		if err := checkVersion(s.tournaments[t.ID] != nil, currentTournamentVersion(s.tournaments[t.ID]), t.Version); err != nil {
			return fmt.Errorf("%w: tournament %s", err, t.ID)
		}
	}
	for _, id := range mutation.RemovedParticipants {
		if _, ok := s.participants[id]; !ok {
			return ErrParticipantNotFound
		}
	}
	for _, m := range mutation.Matches {
		existing := s.matches[m.ID]
		var current int64
		if existing != nil {
			current = existing.Version
		}
		if err := checkVersion(existing != nil, current, m.Version); err != nil {
			return fmt.Errorf("%w: match %s", err, m.ID)
		}
	}

	if t := mutation.Tournament; t != nil {
		s.tournaments[t.ID] = t.Clone()
	}
	for _, id := range mutation.RemovedParticipants {
		delete(s.participants, id)
	}
	for _, p := range mutation.Participants {
		s.participants[p.ID] = p.Clone()
	}
	for _, m := range mutation.Matches {
		s.matches[m.ID] = m.Clone()
	}
	return nil
}

func currentTournamentVersion(t *models.Tournament) int64 {
	if t == nil {
		return 0
	}
	return t.Version
}

func checkVersion(exists bool, current, next int64) error {
	if !exists {
		if next != 1 {
			return ErrVersionConflict
		}
		return nil
	}
	if current != next-1 {
		return ErrVersionConflict
	}
	return nil
}

func (s *MemoryStore) MarkNotified(ctx context.Context, notice models.DecisionNotice) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := notice.IdempotencyKey()
	if _, ok := s.notifications[key]; ok {
		return false, nil
	}
	s.notifications[key] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.DashboardStats{TournamentsTotal: len(s.tournaments)}
	for _, t := range s.tournaments {
		switch t.Status {
		case models.StatusOpen:
			stats.OpenTournaments++
		case models.StatusInProgress:
			stats.ActiveTournaments++
		case models.StatusCompleted:
			stats.CompletedTournaments++
		}
	}
	for _, p := range s.participants {
		if p.Status == models.ParticipantApproved {
			stats.ApprovedParticipants++
		}
	}
	for _, m := range s.matches {
		if m.Status == models.MatchFinished {
			stats.MatchesPlayed++
		}
	}
	return stats, nil
}
