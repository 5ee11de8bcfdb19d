package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.DecisionNotice
}

func (n *recordingNotifier) NotifyDecision(ctx context.Context, notice models.DecisionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) count(participantID uuid.UUID, decision models.Decision) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, notice := range n.notices {
		if notice.ParticipantID == participantID && notice.Decision == decision {
			total++
		}
	}
	return total
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(eventType models.EventType) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingArchiver struct {
	mu        sync.Mutex
	snapshots []*models.TournamentSnapshot
}

func (a *recordingArchiver) Archive(ctx context.Context, snapshot *models.TournamentSnapshot) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshots = append(a.snapshots, snapshot)
	return "tournaments/" + snapshot.Tournament.ID.String() + "/final.json", nil
}

type engine struct {
	store         *repositories.MemoryStore
	notifier      *recordingNotifier
	publisher     *recordingPublisher
	archiver      *recordingArchiver
	dispatcher    *DecisionDispatcher
	tournaments   TournamentService
	registrations RegistrationService
	matches       MatchService
	bracket       BracketService
	standings     StandingsService
}

func newEngine(t *testing.T, defaults TournamentDefaults) *engine {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &engine{
		store:     repositories.NewMemoryStore(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		archiver:  &recordingArchiver{},
	}
	registry := NewRegistry(e.store, logger)
	e.dispatcher = NewDecisionDispatcher(e.store, e.notifier, logger)
	e.tournaments = NewTournamentService(registry, e.publisher, e.archiver, defaults, logger)
	e.registrations = NewRegistrationService(registry, e.dispatcher, e.publisher, logger)
	e.matches = NewMatchService(registry, e.tournaments, e.publisher, logger)
	e.bracket = NewBracketService(registry, e.publisher, logger)
	e.standings = NewStandingsService(registry, logger)
	return e
}

// openTournament создает турнир и открывает регистрацию.
func (e *engine) openTournament(t *testing.T, format models.TournamentFormat, capacity int) *models.Tournament {
	t.Helper()
	ctx := context.Background()

	created, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:     "Cup " + uuid.NewString()[:8],
		Format:   format,
		Capacity: capacity,
	})
	require.NoError(t, err)
	opened, err := e.tournaments.OpenTournament(ctx, created.ID)
	require.NoError(t, err)
	return opened
}

func (e *engine) submit(t *testing.T, tournamentID uuid.UUID, name string) *models.Participant {
	t.Helper()
	p, err := e.registrations.SubmitRegistration(context.Background(), tournamentID, RegistrationInput{
		DisplayName: name,
		TeamName:    name + " FC",
		GameID:      name + "#0001",
	})
	require.NoError(t, err)
	return p
}

// startedTournament регистрирует и одобряет n участников по порядку и запускает турнир.
func (e *engine) startedTournament(t *testing.T, format models.TournamentFormat, n int) (*models.Tournament, []*models.Participant) {
	t.Helper()
	ctx := context.Background()

	tournament := e.openTournament(t, format, n)
	participants := make([]*models.Participant, 0, n)
	for i := 0; i < n; i++ {
		p := e.submit(t, tournament.ID, fmt.Sprintf("player-%02d", i+1))
		approved, err := e.registrations.ApproveRegistration(ctx, p.ID)
		require.NoError(t, err)
		participants = append(participants, approved)
	}
	started, err := e.tournaments.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)
	return started, participants
}

func (e *engine) round(t *testing.T, tournamentID uuid.UUID, round int) []models.MatchView {
	t.Helper()
	rounds, err := e.matches.ListMatches(context.Background(), tournamentID)
	require.NoError(t, err)
	for _, r := range rounds {
		if r.Round == round {
			return r.Matches
		}
	}
	t.Fatalf("round %d not found", round)
	return nil
}

func (e *engine) allMatches(t *testing.T, tournamentID uuid.UUID) []models.MatchView {
	t.Helper()
	rounds, err := e.matches.ListMatches(context.Background(), tournamentID)
	require.NoError(t, err)
	var out []models.MatchView
	for _, r := range rounds {
		out = append(out, r.Matches...)
	}
	return out
}
