package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type sqlStore struct {
	db            *sqlx.DB
	tournaments   TournamentRepository
	participants  ParticipantRepository
	matches       MatchRepository
	notifications NotificationRepository
}

// NewSQLStore работает поверх postgres или sqlite, в зависимости от драйвера db.
func NewSQLStore(db *sqlx.DB) Store {
	return &sqlStore{
		db:            db,
		tournaments:   NewSQLTournamentRepository(db),
		participants:  NewSQLParticipantRepository(db),
		matches:       NewSQLMatchRepository(db),
		notifications: NewSQLNotificationRepository(db),
	}
}

func (s *sqlStore) LoadTournament(ctx context.Context, id uuid.UUID) (*TournamentRecord, error) {
	record := &TournamentRecord{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournaments.FindByID(gCtx, nil, id)
		if err != nil {
			return err
		}
		record.Tournament = t
		return nil
	})
	g.Go(func() error {
		ps, err := s.participants.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		record.Participants = ps
		return nil
	})
	g.Go(func() error {
		ms, err := s.matches.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		record.Matches = ms
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *sqlStore) ListTournaments(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error) {
	return s.tournaments.List(ctx, nil, filter)
}

func (s *sqlStore) FindParticipantTournamentID(ctx context.Context, participantID uuid.UUID) (uuid.UUID, error) {
	return s.participants.FindTournamentID(ctx, nil, participantID)
}

func (s *sqlStore) FindMatchTournamentID(ctx context.Context, matchID uuid.UUID) (uuid.UUID, error) {
	return s.matches.FindTournamentID(ctx, nil, matchID)
}

// Apply сохраняет все изменения в одной транзакции.
func (s *sqlStore) Apply(ctx context.Context, mutation Mutation) (err error) {
	if mutation.Empty() {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
			if err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	if mutation.Tournament != nil {
		if err = s.tournaments.Save(ctx, tx, mutation.Tournament); err != nil {
			return err
		}
	}
	for _, id := range mutation.RemovedParticipants {
		if err = s.participants.Delete(ctx, tx, id); err != nil {
			return err
		}
	}
	for _, p := range mutation.Participants {
		if err = s.participants.Save(ctx, tx, p); err != nil {
			return err
		}
	}

	// Матчи следующих раундов должны существовать раньше ссылающихся на них.
	matches := append([]*models.Match(nil), mutation.Matches...)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Round > matches[j].Round })
	for _, m := range matches {
		if err = s.matches.Save(ctx, tx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) MarkNotified(ctx context.Context, notice models.DecisionNotice) (bool, error) {
	return s.notifications.Record(ctx, nil, notice)
}

func (s *sqlStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var (
		stats    *models.DashboardStats
		approved int
		played   int
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.tournaments.CountByStatus(gCtx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		approved, err = s.participants.CountApproved(gCtx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		played, err = s.matches.CountFinished(gCtx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.ApprovedParticipants = approved
	stats.MatchesPlayed = played
	return stats, nil
}
