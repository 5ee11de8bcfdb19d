package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ResultInput - счет матча. ShootoutWinnerID обязателен для ничьей в матче на выбывание.
type ResultInput struct {
	HomeScore        int        `json:"home_score"`
	AwayScore        int        `json:"away_score"`
	ShootoutWinnerID *uuid.UUID `json:"shootout_winner_id,omitempty"`
}

type MatchService interface {
	// SubmitResult записывает счет и, для сетки на выбывание, продвигает победителя
	// в следующий матч в рамках той же операции.
	SubmitResult(ctx context.Context, matchID uuid.UUID, input ResultInput) (*models.MatchView, error)
	MarkLive(ctx context.Context, matchID uuid.UUID) (*models.MatchView, error)
	MarkPending(ctx context.Context, matchID uuid.UUID) (*models.MatchView, error)
	ScheduleMatch(ctx context.Context, matchID uuid.UUID, at *time.Time) (*models.MatchView, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (*models.MatchView, error)
	ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]models.MatchRound, error)
}

type matchService struct {
	registry    *Registry
	tournaments TournamentService
	publisher   EventPublisher
	logger      *slog.Logger
}

func NewMatchService(registry *Registry, tournaments TournamentService, publisher EventPublisher, logger *slog.Logger) MatchService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &matchService{registry: registry, tournaments: tournaments, publisher: publisher, logger: logger}
}

func validScore(score int) bool {
	return score >= models.MinScore && score <= models.MaxScore
}

func sameResult(a, b *models.Match) bool {
	return a.HomeScore != nil && b.HomeScore != nil && *a.HomeScore == *b.HomeScore &&
		a.AwayScore != nil && b.AwayScore != nil && *a.AwayScore == *b.AwayScore &&
		models.SameID(a.WinnerID, b.WinnerID) && models.SameID(a.ShootoutWinnerID, b.ShootoutWinnerID)
}

// matchOp - изменение одного матча под блокировкой чтения агрегата и блокировкой узла.
// Отмена турнира берет блокировку записи и поэтому дожидается начатых операций.
func (s *matchService) matchOp(
	ctx context.Context,
	matchID uuid.UUID,
	op func(agg *aggregate, node *matchNode, current *models.Match) (*models.MatchView, []models.Event, error),
) (*models.MatchView, *aggregate, error) {
	agg, err := s.registry.byMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	var events []models.Event
	view, err := func() (*models.MatchView, error) {
		agg.mu.RLock()
		defer agg.mu.RUnlock()

		node, ok := agg.nodes[matchID]
		if !ok {
			return nil, ErrMatchNotFound
		}
		if agg.tournament.Status == models.StatusCancelled {
			return nil, rejectf(ErrTournamentCancelled, agg.matchView(node.match.Load()), "tournament %s is cancelled", agg.id)
		}

		node.mu.Lock()
		defer node.mu.Unlock()

		var opErr error
		var view *models.MatchView
		view, events, opErr = op(agg, node, node.match.Load())
		return view, opErr
	}()
	if err != nil {
		return nil, nil, err
	}

	publishAll(ctx, s.publisher, events)
	return view, agg, nil
}

func (s *matchService) SubmitResult(ctx context.Context, matchID uuid.UUID, input ResultInput) (view *models.MatchView, err error) {
	ctx, span := startSpan(ctx, "MatchService.SubmitResult",
		attribute.String("match.id", matchID.String()),
		attribute.Int("match.home_score", input.HomeScore),
		attribute.Int("match.away_score", input.AwayScore))
	defer func() { endSpan(span, err) }()

	var recorded bool
	view, agg, err := s.matchOp(ctx, matchID, func(agg *aggregate, node *matchNode, current *models.Match) (*models.MatchView, []models.Event, error) {
		t := agg.tournament
		snapshot := agg.matchView(current)

		if !validScore(input.HomeScore) || !validScore(input.AwayScore) {
			return nil, nil, rejectf(ErrInvalidScore, snapshot, "got %d-%d", input.HomeScore, input.AwayScore)
		}
		if !current.Ready() {
			return nil, nil, rejectf(ErrMatchNotReady, snapshot, "match %s is waiting for its participants", current.ID)
		}
		correction := current.Finished()
		if correction && (!t.AllowResultCorrection || t.Status != models.StatusInProgress) {
			return nil, nil, rejectf(ErrResultAlreadyFinal, snapshot, "match %s is already finished", current.ID)
		}
		if t.Status != models.StatusInProgress {
			return nil, nil, rejectf(ErrInvalidTransition, snapshot, "results are accepted only while the tournament is in progress, it is %s", t.Status)
		}

		home, away := input.HomeScore, input.AwayScore
		next := current.Clone()
		next.HomeScore = &home
		next.AwayScore = &away
		next.Status = models.MatchFinished
		next.ShootoutWinnerID = nil
		next.Version++
		next.UpdatedAt = now()

		switch t.Format {
		case models.FormatSingleElimination:
			winner, werr := brackets.KnockoutWinner(next, input.ShootoutWinnerID)
			if werr != nil {
				return nil, nil, rejectf(ErrTieNotAllowed, snapshot, "%v", werr)
			}
			next.WinnerID = winner
			if home == away {
				shootout := *input.ShootoutWinnerID
				next.ShootoutWinnerID = &shootout
			}
		default:
			next.WinnerID = brackets.LeagueWinner(next)
		}

		if correction && sameResult(current, next) {
			return snapshot, nil, nil
		}

		mutation := repositories.Mutation{Matches: []*models.Match{next}}
		var adv *advancement
		if t.Format == models.FormatSingleElimination && next.NextMatchID != nil {
			var aerr error
			adv, aerr = prepareAdvance(agg, next)
			if aerr != nil {
				return nil, nil, aerr
			}
			defer adv.release()
			if adv.next != nil {
				mutation.Matches = append(mutation.Matches, adv.next)
			}
		}

		if err := s.registry.apply(ctx, t.ID, mutation); err != nil {
			return nil, nil, err
		}
		node.match.Store(next)
		recorded = true

		updated := agg.matchView(next)
		events := []models.Event{models.NewEvent(models.EventMatchUpdated, t.ID, updated)}
		if adv != nil && adv.next != nil {
			adv.commit()
			events = append(events, models.NewEvent(models.EventBracketAdvanced, t.ID, agg.matchView(adv.next)))
		}
		return updated, events, nil
	})
	if err != nil {
		return nil, err
	}

	if recorded {
		s.logger.InfoContext(ctx, "match result recorded",
			slog.String("tournament_id", agg.id.String()),
			slog.String("match_id", matchID.String()),
			slog.Int("home_score", input.HomeScore),
			slog.Int("away_score", input.AwayScore))

		if _, cerr := s.tournaments.CompleteIfFinished(ctx, agg.id); cerr != nil {
			s.logger.ErrorContext(ctx, "failed to complete tournament after result",
				slog.String("tournament_id", agg.id.String()), slog.Any("error", cerr))
		}
	}
	return view, nil
}

// setStatus меняет статус матча без изменения счета.
func (s *matchService) setStatus(ctx context.Context, matchID uuid.UUID, status models.MatchStatus) (*models.MatchView, error) {
	view, _, err := s.matchOp(ctx, matchID, func(agg *aggregate, node *matchNode, current *models.Match) (*models.MatchView, []models.Event, error) {
		snapshot := agg.matchView(current)
		if current.Finished() {
			return nil, nil, rejectf(ErrResultAlreadyFinal, snapshot, "match %s is already finished", current.ID)
		}
		if agg.tournament.Status != models.StatusInProgress {
			return nil, nil, rejectf(ErrInvalidTransition, snapshot, "tournament is %s", agg.tournament.Status)
		}
		if status == models.MatchLive && !current.Ready() {
			return nil, nil, rejectf(ErrMatchNotReady, snapshot, "match %s is waiting for its participants", current.ID)
		}
		if current.Status == status {
			return snapshot, nil, nil
		}

		next := current.Clone()
		next.Status = status
		next.Version++
		next.UpdatedAt = now()
		if err := s.registry.apply(ctx, agg.id, repositories.Mutation{Matches: []*models.Match{next}}); err != nil {
			return nil, nil, err
		}
		node.match.Store(next)
		updated := agg.matchView(next)
		return updated, []models.Event{models.NewEvent(models.EventMatchUpdated, agg.id, updated)}, nil
	})
	return view, err
}

func (s *matchService) MarkLive(ctx context.Context, matchID uuid.UUID) (view *models.MatchView, err error) {
	ctx, span := startSpan(ctx, "MatchService.MarkLive", attribute.String("match.id", matchID.String()))
	defer func() { endSpan(span, err) }()
	return s.setStatus(ctx, matchID, models.MatchLive)
}

func (s *matchService) MarkPending(ctx context.Context, matchID uuid.UUID) (view *models.MatchView, err error) {
	ctx, span := startSpan(ctx, "MatchService.MarkPending", attribute.String("match.id", matchID.String()))
	defer func() { endSpan(span, err) }()
	return s.setStatus(ctx, matchID, models.MatchPending)
}

func (s *matchService) ScheduleMatch(ctx context.Context, matchID uuid.UUID, at *time.Time) (view *models.MatchView, err error) {
	ctx, span := startSpan(ctx, "MatchService.ScheduleMatch", attribute.String("match.id", matchID.String()))
	defer func() { endSpan(span, err) }()

	view, _, err = s.matchOp(ctx, matchID, func(agg *aggregate, node *matchNode, current *models.Match) (*models.MatchView, []models.Event, error) {
		if current.Finished() {
			return nil, nil, rejectf(ErrResultAlreadyFinal, agg.matchView(current), "match %s is already finished", current.ID)
		}
		next := current.Clone()
		next.ScheduledAt = nil
		if at != nil {
			ts := at.UTC()
			next.ScheduledAt = &ts
		}
		next.Version++
		next.UpdatedAt = now()
		if err := s.registry.apply(ctx, agg.id, repositories.Mutation{Matches: []*models.Match{next}}); err != nil {
			return nil, nil, err
		}
		node.match.Store(next)
		updated := agg.matchView(next)
		return updated, []models.Event{models.NewEvent(models.EventMatchUpdated, agg.id, updated)}, nil
	})
	return view, err
}

func (s *matchService) GetMatch(ctx context.Context, matchID uuid.UUID) (view *models.MatchView, err error) {
	ctx, span := startSpan(ctx, "MatchService.GetMatch", attribute.String("match.id", matchID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.byMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	node, ok := agg.nodes[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return agg.matchView(node.match.Load()), nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID uuid.UUID) (rounds []models.MatchRound, err error) {
	ctx, span := startSpan(ctx, "MatchService.ListMatches", attribute.String("tournament.id", tournamentID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	return buildRounds(agg), nil
}
