package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

const notifyTimeout = 10 * time.Second

// Notifier доставляет участнику решение по заявке (мессенджер, почта и т.п.).
type Notifier interface {
	NotifyDecision(ctx context.Context, notice models.DecisionNotice) error
}

// LogNotifier пишет уведомления в лог. Используется, когда внешний канал не настроен.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyDecision(ctx context.Context, notice models.DecisionNotice) error {
	n.logger.InfoContext(ctx, "registration decision",
		slog.String("participant_id", notice.ParticipantID.String()),
		slog.String("tournament_id", notice.TournamentID.String()),
		slog.String("decision", string(notice.Decision)),
		slog.String("display_name", notice.DisplayName),
		slog.String("contact", derefString(notice.Contact)),
	)
	return nil
}

// DecisionDispatcher отправляет уведомления асинхронно и не более одного раза
// на пару (заявка, решение). Ошибка доставки не откатывает решение.
type DecisionDispatcher struct {
	store    repositories.Store
	notifier Notifier
	logger   *slog.Logger
	tasks    background
}

func NewDecisionDispatcher(store repositories.Store, notifier Notifier, logger *slog.Logger) *DecisionDispatcher {
	return &DecisionDispatcher{store: store, notifier: notifier, logger: logger}
}

func (d *DecisionDispatcher) Dispatch(ctx context.Context, notice models.DecisionNotice) {
	ctx = context.WithoutCancel(ctx)
	d.tasks.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		d.deliver(ctx, notice)
	})
}

func (d *DecisionDispatcher) deliver(ctx context.Context, notice models.DecisionNotice) {
	logger := d.logger.With(
		slog.String("participant_id", notice.ParticipantID.String()),
		slog.String("decision", string(notice.Decision)),
	)

	first, err := d.store.MarkNotified(ctx, notice)
	if err != nil {
		logger.ErrorContext(ctx, "failed to record decision notification", slog.Any("error", err))
		return
	}
	if !first {
		logger.DebugContext(ctx, "decision already notified, skipping")
		return
	}
	if err := d.notifier.NotifyDecision(ctx, notice); err != nil {
		logger.WarnContext(ctx, "failed to deliver decision notification", slog.Any("error", err))
	}
}

// Wait дожидается отправки всех поставленных уведомлений.
func (d *DecisionDispatcher) Wait() {
	d.tasks.Wait()
}
