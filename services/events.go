package services

import (
	"context"

	"github.com/Dosada05/tournament-engine/models"
)

// EventPublisher рассылает события турнира подписчикам. Вызывается после
// снятия блокировок агрегата и не должен блокировать надолго.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event)
}

// Archiver сохраняет итоговое состояние завершенного турнира и возвращает ключ объекта.
type Archiver interface {
	Archive(ctx context.Context, snapshot *models.TournamentSnapshot) (string, error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.Event) {}

func publishAll(ctx context.Context, publisher EventPublisher, events []models.Event) {
	for _, e := range events {
		publisher.Publish(ctx, e)
	}
}
