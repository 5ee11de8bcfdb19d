package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTournamentNameLength = 120
	maxCapacity             = 1024
	archiveTimeout          = 30 * time.Second
)

type CreateTournamentInput struct {
	Name                       string                  `json:"name"`
	Format                     models.TournamentFormat `json:"format"`
	Capacity                   int                     `json:"capacity"`
	EntryFeeCents              int64                   `json:"entry_fee_cents"`
	Prize                      *string                 `json:"prize,omitempty"`
	StartDate                  *time.Time              `json:"start_date,omitempty"`
	Legs                       int                     `json:"legs"`
	AllowResultCorrection      *bool                   `json:"allow_result_correction,omitempty"`
	RequirePaymentConfirmation *bool                   `json:"require_payment_confirmation,omitempty"`
}

// UpdateTournamentInput - частичное изменение, nil поля не меняются.
type UpdateTournamentInput struct {
	Name                       *string                  `json:"name,omitempty"`
	Format                     *models.TournamentFormat `json:"format,omitempty"`
	Capacity                   *int                     `json:"capacity,omitempty"`
	EntryFeeCents              *int64                   `json:"entry_fee_cents,omitempty"`
	Prize                      *string                  `json:"prize,omitempty"`
	StartDate                  *time.Time               `json:"start_date,omitempty"`
	Legs                       *int                     `json:"legs,omitempty"`
	AllowResultCorrection      *bool                    `json:"allow_result_correction,omitempty"`
	RequirePaymentConfirmation *bool                    `json:"require_payment_confirmation,omitempty"`
}

// TournamentDefaults - значения флагов для новых турниров.
type TournamentDefaults struct {
	AllowResultCorrection      bool
	RequirePaymentConfirmation bool
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	UpdateTournament(ctx context.Context, id uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error)
	OpenTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	StartTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	CancelTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	// CompleteIfFinished завершает турнир, если сыграны все матчи. Возвращает true,
	// если турнир был завершен этим вызовом.
	CompleteIfFinished(ctx context.Context, id uuid.UUID) (bool, error)
	Snapshot(ctx context.Context, id uuid.UUID) (*models.TournamentSnapshot, error)
	// Wait дожидается фоновой архивации.
	Wait()
}

type tournamentService struct {
	registry  *Registry
	publisher EventPublisher
	archiver  Archiver
	defaults  TournamentDefaults
	logger    *slog.Logger
	tasks     background
}

// NewTournamentService создает сервис жизненного цикла турниров. archiver может быть nil.
func NewTournamentService(registry *Registry, publisher EventPublisher, archiver Archiver, defaults TournamentDefaults, logger *slog.Logger) TournamentService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &tournamentService{
		registry:  registry,
		publisher: publisher,
		archiver:  archiver,
		defaults:  defaults,
		logger:    logger,
	}
}

func validateTournament(t *models.Tournament) error {
	if t.Name == "" {
		return validationf("name is required")
	}
	if len(t.Name) > maxTournamentNameLength {
		return validationf("name must be at most %d characters", maxTournamentNameLength)
	}
	if t.Format != "" && !t.Format.Valid() {
		return validationf("unknown format %q", t.Format)
	}
	if t.Capacity < 0 || t.Capacity > maxCapacity {
		return validationf("capacity must be between 0 and %d", maxCapacity)
	}
	if t.EntryFeeCents < 0 {
		return validationf("entry fee cannot be negative")
	}
	if t.Legs != 1 && t.Legs != 2 {
		return validationf("legs must be 1 or 2")
	}
	if t.Legs == 2 && t.Format == models.FormatSingleElimination {
		return validationf("two legs are only supported for %s", models.FormatRoundRobin)
	}
	return nil
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (t *models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.CreateTournament")
	defer func() { endSpan(span, err) }()

	ts := now()
	t = &models.Tournament{
		ID:                         uuid.New(),
		Name:                       strings.TrimSpace(input.Name),
		Format:                     input.Format,
		Capacity:                   input.Capacity,
		EntryFeeCents:              input.EntryFeeCents,
		Prize:                      trimOptional(input.Prize),
		StartDate:                  input.StartDate,
		Status:                     models.StatusDraft,
		Legs:                       input.Legs,
		AllowResultCorrection:      s.defaults.AllowResultCorrection,
		RequirePaymentConfirmation: s.defaults.RequirePaymentConfirmation,
		Version:                    1,
		CreatedAt:                  ts,
		UpdatedAt:                  ts,
	}
	if t.Legs == 0 {
		t.Legs = 1
	}
	if input.AllowResultCorrection != nil {
		t.AllowResultCorrection = *input.AllowResultCorrection
	}
	if input.RequirePaymentConfirmation != nil {
		t.RequirePaymentConfirmation = *input.RequirePaymentConfirmation
	}
	if err := validateTournament(t); err != nil {
		return nil, err
	}

	if err := s.registry.apply(ctx, t.ID, repositories.Mutation{Tournament: t}); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	agg := newAggregate(&repositories.TournamentRecord{Tournament: t.Clone()})
	s.registry.add(agg)

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", t.ID.String()), slog.String("format", string(t.Format)))
	return agg.tournamentView(), nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id uuid.UUID, input UpdateTournamentInput) (t *models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.UpdateTournament", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, id)
	if err != nil {
		return nil, err
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()

	current := agg.tournament
	if current.Status != models.StatusDraft && current.Status != models.StatusOpen {
		return nil, rejectf(ErrInvalidTransition, agg.tournamentView(), "tournament in status %s cannot be edited", current.Status)
	}

	next := current.Clone()
	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
	}
	if input.Format != nil && *input.Format != current.Format {
		if current.Status != models.StatusDraft {
			return nil, rejectf(ErrInvalidTransition, agg.tournamentView(), "format can only be changed in %s", models.StatusDraft)
		}
		next.Format = *input.Format
	}
	if input.Capacity != nil {
		if *input.Capacity < current.ApprovedCount {
			return nil, validationf("capacity %d is below the %d approved participants", *input.Capacity, current.ApprovedCount)
		}
		next.Capacity = *input.Capacity
	}
	if input.EntryFeeCents != nil {
		next.EntryFeeCents = *input.EntryFeeCents
	}
	if input.Prize != nil {
		next.Prize = trimOptional(input.Prize)
	}
	if input.StartDate != nil {
		d := *input.StartDate
		next.StartDate = &d
	}
	if input.Legs != nil {
		next.Legs = *input.Legs
	}
	if input.AllowResultCorrection != nil {
		next.AllowResultCorrection = *input.AllowResultCorrection
	}
	if input.RequirePaymentConfirmation != nil {
		next.RequirePaymentConfirmation = *input.RequirePaymentConfirmation
	}
	if err := validateTournament(next); err != nil {
		return nil, err
	}
	if current.Status == models.StatusOpen {
		if err := validateOpenable(next); err != nil {
			return nil, err
		}
	}

	next.Version++
	next.UpdatedAt = now()
	if err := s.registry.apply(ctx, id, repositories.Mutation{Tournament: next}); err != nil {
		return nil, err
	}
	agg.tournament = next
	return agg.tournamentView(), nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id uuid.UUID) (t *models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.GetTournament", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, id)
	if err != nil {
		return nil, err
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	return agg.tournamentView(), nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter models.TournamentFilter) (list []*models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.ListTournaments")
	defer func() { endSpan(span, err) }()

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationf("unknown status %q", *filter.Status)
	}
	if filter.Format != nil && !filter.Format.Valid() {
		return nil, validationf("unknown format %q", *filter.Format)
	}
	list, err = s.registry.store.ListTournaments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return list, nil
}

func validateOpenable(t *models.Tournament) error {
	if reason := openableProblem(t); reason != "" {
		return validationf("%s", reason)
	}
	return nil
}

func openableProblem(t *models.Tournament) string {
	if !t.Format.Valid() {
		return "format must be set before opening registration"
	}
	if t.Capacity < 2 {
		return "capacity must be at least 2 before opening registration"
	}
	return ""
}

// transition меняет статус турнира под блокировкой агрегата. check выполняется
// перед сменой и может отклонить переход.
func (s *tournamentService) transition(
	ctx context.Context,
	id uuid.UUID,
	target models.TournamentStatus,
	check func(agg *aggregate) error,
	build func(agg *aggregate, next *models.Tournament) (repositories.Mutation, []*models.Match, error),
) (*models.Tournament, error) {
	agg, err := s.registry.get(ctx, id)
	if err != nil {
		return nil, err
	}

	view, err := func() (*models.Tournament, error) {
		agg.mu.Lock()
		defer agg.mu.Unlock()

		current := agg.tournament
		if current.Status.IsTerminal() {
			if current.Status == models.StatusCancelled && target != models.StatusCancelled {
				return nil, rejectf(ErrTournamentCancelled, agg.tournamentView(), "tournament %s is cancelled", id)
			}
			return nil, rejectf(ErrInvalidTransition, agg.tournamentView(), "tournament %s is already %s", id, current.Status)
		}
		if !current.Status.CanTransitionTo(target) {
			return nil, rejectf(ErrInvalidTransition, agg.tournamentView(), "cannot move tournament from %s to %s", current.Status, target)
		}
		if check != nil {
			if err := check(agg); err != nil {
				return nil, err
			}
		}

		next := current.Clone()
		next.Status = target
		next.Version++
		next.UpdatedAt = now()

		mutation := repositories.Mutation{Tournament: next}
		var matches []*models.Match
		if build != nil {
			mutation, matches, err = build(agg, next)
			if err != nil {
				return nil, err
			}
		}
		if err := s.registry.apply(ctx, id, mutation); err != nil {
			return nil, err
		}
		agg.tournament = next
		if matches != nil {
			agg.setMatches(matches)
		}
		return agg.tournamentView(), nil
	}()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament status changed",
		slog.String("tournament_id", id.String()), slog.String("status", string(view.Status)))
	s.publisher.Publish(ctx, models.NewEvent(models.EventTournamentStatusChanged, id, view))
	return view, nil
}

func (s *tournamentService) OpenTournament(ctx context.Context, id uuid.UUID) (t *models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.OpenTournament", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	return s.transition(ctx, id, models.StatusOpen, func(agg *aggregate) error {
		if reason := openableProblem(agg.tournament); reason != "" {
			return rejectf(ErrInvalidTransition, agg.tournamentView(), "%s", reason)
		}
		return nil
	}, nil)
}

func (s *tournamentService) StartTournament(ctx context.Context, id uuid.UUID) (t *models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.StartTournament", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	check := func(agg *aggregate) error {
		if approved := agg.tournament.ApprovedCount; approved < 2 {
			return rejectf(ErrInvalidTransition, agg.tournamentView(), "at least 2 approved participants required, have %d", approved)
		}
		return nil
	}
	build := func(agg *aggregate, next *models.Tournament) (repositories.Mutation, []*models.Match, error) {
		approved := agg.approvedParticipants()
		ids := make([]uuid.UUID, 0, len(approved))
		for _, p := range approved {
			ids = append(ids, p.ID)
		}

		generator, err := brackets.NewGenerator(next.Format)
		if err != nil {
			return repositories.Mutation{}, nil, err
		}
		fixtures, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{Participants: ids, Legs: next.Legs})
		if err != nil {
			return repositories.Mutation{}, nil, fmt.Errorf("failed to generate %s fixtures: %w", generator.GetName(), err)
		}
		matches := materializeFixtures(next.ID, fixtures, next.UpdatedAt)
		s.logger.InfoContext(ctx, "fixtures generated",
			slog.String("tournament_id", next.ID.String()),
			slog.String("generator", generator.GetName()),
			slog.Int("participants", len(ids)),
			slog.Int("matches", len(matches)))
		return repositories.Mutation{Tournament: next, Matches: matches}, matches, nil
	}
	return s.transition(ctx, id, models.StatusInProgress, check, build)
}

// materializeFixtures превращает сгенерированные матчи в сохраняемые.
// Матчи с баем пропускаются: участник уже стоит в слоте следующего раунда.
func materializeFixtures(tournamentID uuid.UUID, fixtures []*brackets.BracketMatch, ts time.Time) []*models.Match {
	ids := make(map[string]uuid.UUID, len(fixtures))
	for _, f := range fixtures {
		if !f.IsBye {
			ids[f.UID] = uuid.New()
		}
	}

	matches := make([]*models.Match, 0, len(ids))
	for _, f := range fixtures {
		if f.IsBye {
			continue
		}
		m := &models.Match{
			ID:           ids[f.UID],
			TournamentID: tournamentID,
			Round:        f.Round,
			Slot:         f.OrderInRound,
			RoundLabel:   f.Label,
			HomeID:       f.Participant1ID,
			AwayID:       f.Participant2ID,
			Status:       models.MatchPending,
			Version:      1,
			UpdatedAt:    ts,
		}
		if f.NextMatchUID != nil {
			if nextID, ok := ids[*f.NextMatchUID]; ok {
				slot := f.NextSlot
				m.NextMatchID = &nextID
				m.NextSlot = &slot
			}
		}
		matches = append(matches, m)
	}
	return matches
}

func (s *tournamentService) CancelTournament(ctx context.Context, id uuid.UUID) (t *models.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.CancelTournament", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	return s.transition(ctx, id, models.StatusCancelled, func(agg *aggregate) error {
		if agg.tournament.Status == models.StatusInProgress && agg.hasFinishedMatch() {
			return rejectf(ErrInvalidTransition, agg.tournamentView(), "tournament already has recorded results")
		}
		return nil
	}, nil)
}

func (s *tournamentService) CompleteIfFinished(ctx context.Context, id uuid.UUID) (completed bool, err error) {
	ctx, span := startSpan(ctx, "TournamentService.CompleteIfFinished", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, id)
	if err != nil {
		return false, err
	}

	var (
		events   []models.Event
		snapshot *models.TournamentSnapshot
	)
	completed, err = func() (bool, error) {
		agg.mu.Lock()
		defer agg.mu.Unlock()

		current := agg.tournament
		if current.Status != models.StatusInProgress {
			return false, nil
		}
		matches := agg.matches()
		if len(matches) == 0 {
			return false, nil
		}
		for _, m := range matches {
			if !m.Finished() {
				return false, nil
			}
		}

		next := current.Clone()
		next.Status = models.StatusCompleted
		next.Version++
		next.UpdatedAt = now()

		var standings *models.Standings
		switch current.Format {
		case models.FormatSingleElimination:
			final := matches[len(matches)-1]
			next.ChampionID = final.WinnerID
		case models.FormatRoundRobin:
			standings = brackets.ComputeStandings(id, agg.approvedParticipants(), matches)
			standings.Final = true
		}

		if err := s.registry.apply(ctx, id, repositories.Mutation{Tournament: next}); err != nil {
			return false, err
		}
		agg.tournament = next

		view := agg.tournamentView()
		events = append(events, models.NewEvent(models.EventTournamentStatusChanged, id, view))
		if next.ChampionID != nil {
			events = append(events, models.NewEvent(models.EventChampionDecided, id, agg.summary(next.ChampionID)))
		}
		if standings != nil {
			events = append(events, models.NewEvent(models.EventStandingsFrozen, id, standings))
		}
		snapshot = buildSnapshot(agg, standings)
		return true, nil
	}()
	if err != nil || !completed {
		return completed, err
	}

	s.logger.InfoContext(ctx, "tournament completed", slog.String("tournament_id", id.String()))
	publishAll(ctx, s.publisher, events)
	s.archive(ctx, snapshot)
	return true, nil
}

func (s *tournamentService) archive(ctx context.Context, snapshot *models.TournamentSnapshot) {
	if s.archiver == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.tasks.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
		defer cancel()
		key, err := s.archiver.Archive(ctx, snapshot)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to archive tournament",
				slog.String("tournament_id", snapshot.Tournament.ID.String()), slog.Any("error", err))
			return
		}
		s.logger.InfoContext(ctx, "tournament archived",
			slog.String("tournament_id", snapshot.Tournament.ID.String()), slog.String("key", key))
	})
}

func (s *tournamentService) Snapshot(ctx context.Context, id uuid.UUID) (snapshot *models.TournamentSnapshot, err error) {
	ctx, span := startSpan(ctx, "TournamentService.Snapshot", attribute.String("tournament.id", id.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, id)
	if err != nil {
		return nil, err
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()

	var standings *models.Standings
	if agg.tournament.Format == models.FormatRoundRobin && len(agg.matchOrder) > 0 {
		standings = brackets.ComputeStandings(id, agg.approvedParticipants(), agg.matches())
		standings.Final = agg.tournament.Status == models.StatusCompleted
	}
	return buildSnapshot(agg, standings), nil
}

func buildSnapshot(agg *aggregate, standings *models.Standings) *models.TournamentSnapshot {
	snapshot := &models.TournamentSnapshot{
		Tournament:   agg.tournamentView(),
		Participants: agg.participantList(nil),
		Standings:    standings,
	}
	for _, m := range agg.matches() {
		snapshot.Matches = append(snapshot.Matches, m.Clone())
	}
	if agg.tournament.Format == models.FormatSingleElimination && len(agg.matchOrder) > 0 {
		snapshot.Bracket = buildBracket(agg)
	}
	return snapshot
}

func (s *tournamentService) Wait() {
	s.tasks.Wait()
}
