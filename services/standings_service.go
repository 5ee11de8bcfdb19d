package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type StandingsService interface {
	// GetStandings пересчитывает таблицу круговой системы по завершенным матчам.
	GetStandings(ctx context.Context, tournamentID uuid.UUID) (*models.Standings, error)
}

type standingsService struct {
	registry *Registry
	logger   *slog.Logger
}

func NewStandingsService(registry *Registry, logger *slog.Logger) StandingsService {
	return &standingsService{registry: registry, logger: logger}
}

func (s *standingsService) GetStandings(ctx context.Context, tournamentID uuid.UUID) (standings *models.Standings, err error) {
	ctx, span := startSpan(ctx, "StandingsService.GetStandings", attribute.String("tournament.id", tournamentID.String()))
	defer func() { endSpan(span, err) }()

	agg, err := s.registry.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	agg.mu.RLock()
	defer agg.mu.RUnlock()
	if agg.tournament.Format != models.FormatRoundRobin {
		return nil, fmt.Errorf("%w: standings are only available for %s tournaments", ErrWrongFormat, models.FormatRoundRobin)
	}

	standings = brackets.ComputeStandings(tournamentID, agg.approvedParticipants(), agg.matches())
	standings.Final = agg.tournament.Status == models.StatusCompleted
	return standings, nil
}
