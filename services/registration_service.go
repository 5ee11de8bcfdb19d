package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const maxNameLength = 64

type RegistrationInput struct {
	DisplayName string  `json:"display_name"`
	TeamName    string  `json:"team_name"`
	GameID      string  `json:"game_id"`
	Contact     *string `json:"contact,omitempty"`
}

func (in RegistrationInput) normalize() (RegistrationInput, error) {
	out := RegistrationInput{
		DisplayName: strings.TrimSpace(in.DisplayName),
		TeamName:    strings.TrimSpace(in.TeamName),
		GameID:      strings.TrimSpace(in.GameID),
		Contact:     trimOptional(in.Contact),
	}
	switch {
	case out.DisplayName == "":
		return out, validationf("display name is required")
	case out.GameID == "":
		return out, validationf("game id is required")
	case len(out.DisplayName) > maxNameLength, len(out.TeamName) > maxNameLength, len(out.GameID) > maxNameLength:
		return out, validationf("names and game id must be at most %d characters", maxNameLength)
	}
	return out, nil
}

type RegistrationService interface {
	SubmitRegistration(ctx context.Context, tournamentID uuid.UUID, input RegistrationInput) (*models.Participant, error)
	ApproveRegistration(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)
	RejectRegistration(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)
	// ConfirmPayment отмечает внешнее подтверждение оплаты взноса.
	ConfirmPayment(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)
	// WithdrawRegistration удаляет заявку до старта турнира и освобождает место.
	WithdrawRegistration(ctx context.Context, participantID uuid.UUID) error
	GetRegistration(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)
	ListRegistrations(ctx context.Context, tournamentID uuid.UUID, status *models.ParticipantStatus) ([]*models.Participant, error)
	GetPendingRegistrations(ctx context.Context, tournamentID uuid.UUID) ([]*models.Participant, error)
}

type registrationService struct {
	registry   *Registry
	dispatcher *DecisionDispatcher
	publisher  EventPublisher
	logger     *slog.Logger
}

func NewRegistrationService(registry *Registry, dispatcher *DecisionDispatcher, publisher EventPublisher, logger *slog.Logger) RegistrationService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &registrationService{registry: registry, dispatcher: dispatcher, publisher: publisher, logger: logger}
}

// touch возвращает новую версию турнира для изменения, затрагивающего заявки.
func touch(t *models.Tournament) *models.Tournament {
	next := t.Clone()
	next.Version++
	next.UpdatedAt = now()
	return next
}

func (s *registrationService) SubmitRegistration(ctx context.Context, tournamentID uuid.UUID, input RegistrationInput) (p *models.Participant, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.SubmitRegistration", attribute.String("tournament.id", tournamentID.String()))
	defer func() { endSpan(span, err) }()

	input, err = input.normalize()
	if err != nil {
		return nil, err
	}
	agg, err := s.registry.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	p, err = func() (*models.Participant, error) {
		agg.mu.Lock()
		defer agg.mu.Unlock()

		t := agg.tournament
		if t.Status != models.StatusOpen {
			return nil, rejectf(ErrTournamentNotOpen, agg.tournamentView(), "tournament is %s", t.Status)
		}
		if t.ApprovedCount >= t.Capacity {
			return nil, rejectf(ErrCapacityExceeded, agg.tournamentView(), "all %d slots are taken", t.Capacity)
		}
		for _, id := range agg.order {
			existing := agg.participants[id]
			if existing.Status != models.ParticipantRejected && strings.EqualFold(existing.GameID, input.GameID) {
				return nil, rejectf(ErrRegistrationConflict, existing.Clone(), "game id %q is already registered", input.GameID)
			}
		}

		nextT := touch(t)
		participant := &models.Participant{
			ID:           uuid.New(),
			TournamentID: t.ID,
			DisplayName:  input.DisplayName,
			TeamName:     input.TeamName,
			GameID:       input.GameID,
			Contact:      input.Contact,
			Status:       models.ParticipantPending,
			CreatedAt:    nextT.UpdatedAt,
		}
		mutation := repositories.Mutation{Tournament: nextT, Participants: []*models.Participant{participant}}
		if err := s.registry.apply(ctx, t.ID, mutation); err != nil {
			return nil, err
		}
		agg.tournament = nextT
		agg.putParticipant(participant)
		return participant.Clone(), nil
	}()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration submitted",
		slog.String("tournament_id", tournamentID.String()), slog.String("participant_id", p.ID.String()))
	s.publisher.Publish(ctx, models.NewEvent(models.EventRegistrationSubmitted, tournamentID, p))
	return p, nil
}

// decide применяет решение по заявке. Проверка вместимости и увеличение счетчика
// одобренных выполняются под одной блокировкой агрегата.
func (s *registrationService) decide(ctx context.Context, participantID uuid.UUID, decision models.Decision) (*models.Participant, error) {
	agg, err := s.registry.byParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	var changed bool
	p, err := func() (*models.Participant, error) {
		agg.mu.Lock()
		defer agg.mu.Unlock()

		current, ok := agg.participants[participantID]
		if !ok {
			return nil, ErrParticipantNotFound
		}
		t := agg.tournament

		if decision == models.DecisionRejected && current.Status == models.ParticipantRejected {
			return current.Clone(), nil
		}
		if current.Status != models.ParticipantPending {
			return nil, rejectf(ErrNotPending, current.Clone(), "registration is already %s", current.Status)
		}

		nextT := touch(t)
		next := current.Clone()
		decidedAt := nextT.UpdatedAt
		next.DecidedAt = &decidedAt

		switch decision {
		case models.DecisionApproved:
			if t.Status != models.StatusOpen {
				return nil, rejectf(ErrTournamentNotOpen, agg.tournamentView(), "tournament is %s", t.Status)
			}
			if t.ApprovedCount >= t.Capacity {
				return nil, rejectf(ErrCapacityExceeded, agg.tournamentView(), "all %d slots are taken", t.Capacity)
			}
			if t.RequirePaymentConfirmation && !current.PaymentConfirmed {
				return nil, rejectf(ErrPaymentNotConfirmed, current.Clone(), "entry fee payment is not confirmed")
			}
			seed := nextSeed(agg)
			next.Status = models.ParticipantApproved
			next.Seed = &seed
			nextT.ApprovedCount++
		case models.DecisionRejected:
			next.Status = models.ParticipantRejected
		}

		mutation := repositories.Mutation{Tournament: nextT, Participants: []*models.Participant{next}}
		if err := s.registry.apply(ctx, t.ID, mutation); err != nil {
			return nil, err
		}
		agg.tournament = nextT
		agg.putParticipant(next)
		changed = true
		return next.Clone(), nil
	}()
	if err != nil || !changed {
		return p, err
	}

	s.logger.InfoContext(ctx, "registration decided",
		slog.String("tournament_id", p.TournamentID.String()),
		slog.String("participant_id", p.ID.String()),
		slog.String("decision", string(decision)))
	s.publisher.Publish(ctx, models.NewEvent(models.EventRegistrationDecided, p.TournamentID, p))
	s.dispatcher.Dispatch(ctx, models.DecisionNotice{
		ParticipantID: p.ID,
		TournamentID:  p.TournamentID,
		Decision:      decision,
		DisplayName:   p.DisplayName,
		Contact:       p.Contact,
	})
	return p, nil
}

// nextSeed - следующий номер посева. Номера освобожденных мест не переиспользуются.
func nextSeed(agg *aggregate) int {
	seed := 0
	for _, p := range agg.participants {
		if p.Seed != nil && *p.Seed > seed {
			seed = *p.Seed
		}
	}
	return seed + 1
}

func (s *registrationService) ApproveRegistration(ctx context.Context, participantID uuid.UUID) (p *models.Participant, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.ApproveRegistration", attribute.String("participant.id", participantID.String()))
	defer func() { endSpan(span, err) }()
	return s.decide(ctx, participantID, models.DecisionApproved)
}

func (s *registrationService) RejectRegistration(ctx context.Context, participantID uuid.UUID) (p *models.Participant, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.RejectRegistration", attribute.String("participant.id", participantID.String()))
	defer func() { endSpan(span, err) }()
	return s.decide(ctx, participantID, models.DecisionRejected)
}

func (s *registrationService) ConfirmPayment(ctx context.Context, participantID uuid.UUID) (p *models.Participant, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.ConfirmPayment", attribute.String("participant.id", participantID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.byParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	current, ok := agg.participants[participantID]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	if current.Status == models.ParticipantRejected {
		return nil, rejectf(ErrNotPending, current.Clone(), "registration is rejected")
	}
	if current.PaymentConfirmed {
		return current.Clone(), nil
	}

	nextT := touch(agg.tournament)
	next := current.Clone()
	next.PaymentConfirmed = true
	if err := s.registry.apply(ctx, agg.id, repositories.Mutation{Tournament: nextT, Participants: []*models.Participant{next}}); err != nil {
		return nil, err
	}
	agg.tournament = nextT
	agg.putParticipant(next)
	return next.Clone(), nil
}

func (s *registrationService) WithdrawRegistration(ctx context.Context, participantID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "RegistrationService.WithdrawRegistration", attribute.String("participant.id", participantID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.byParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()

	current, ok := agg.participants[participantID]
	if !ok {
		return ErrParticipantNotFound
	}
	t := agg.tournament
	if t.Status != models.StatusDraft && t.Status != models.StatusOpen {
		return rejectf(ErrInvalidTransition, agg.tournamentView(), "registrations cannot be withdrawn once the tournament is %s", t.Status)
	}

	nextT := touch(t)
	if current.Status == models.ParticipantApproved {
		nextT.ApprovedCount--
	}
	mutation := repositories.Mutation{Tournament: nextT, RemovedParticipants: []uuid.UUID{participantID}}
	if err := s.registry.apply(ctx, t.ID, mutation); err != nil {
		return err
	}
	agg.tournament = nextT
	agg.removeParticipant(participantID)

	s.logger.InfoContext(ctx, "registration withdrawn",
		slog.String("tournament_id", t.ID.String()), slog.String("participant_id", participantID.String()))
	return nil
}

func (s *registrationService) GetRegistration(ctx context.Context, participantID uuid.UUID) (p *models.Participant, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.GetRegistration", attribute.String("participant.id", participantID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.byParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	current, ok := agg.participants[participantID]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return current.Clone(), nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, tournamentID uuid.UUID, status *models.ParticipantStatus) (list []*models.Participant, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.ListRegistrations", attribute.String("tournament.id", tournamentID.String()))
	defer func() { endSpan(span, err) }()

	if status != nil && !status.Valid() {
		return nil, validationf("unknown registration status %q", *status)
	}
	agg, err := s.registry.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	return agg.participantList(status), nil
}

func (s *registrationService) GetPendingRegistrations(ctx context.Context, tournamentID uuid.UUID) ([]*models.Participant, error) {
	pending := models.ParticipantPending
	return s.ListRegistrations(ctx, tournamentID, &pending)
}
