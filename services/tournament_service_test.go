package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentLifecycle_Transitions(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()

	created, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "Autumn League", Capacity: 4})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, 1, created.Legs)

	_, err = e.tournaments.StartTournament(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "draft cannot jump to in progress")

	_, err = e.tournaments.OpenTournament(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "format is required before opening")
	snapshot, ok := SnapshotOf(err)
	require.True(t, ok)
	assert.Equal(t, models.StatusDraft, snapshot.(*models.Tournament).Status)

	format := models.FormatRoundRobin
	_, err = e.tournaments.UpdateTournament(ctx, created.ID, UpdateTournamentInput{Format: &format})
	require.NoError(t, err)

	opened, err := e.tournaments.OpenTournament(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, opened.Status)

	_, err = e.tournaments.OpenTournament(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "open -> open")

	p := e.submit(t, created.ID, "solo")
	_, err = e.registrations.ApproveRegistration(ctx, p.ID)
	require.NoError(t, err)
	_, err = e.tournaments.StartTournament(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "one participant is not enough")

	events := e.publisher.ofType(models.EventTournamentStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, created.ID, events[0].TournamentID)
}

func TestOpenTournament_RequiresFormatAndCapacity(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateTournamentInput
	}{
		{name: "no format", input: CreateTournamentInput{Name: "No format", Capacity: 4}},
		{name: "capacity 1", input: CreateTournamentInput{Name: "Solo", Format: models.FormatRoundRobin, Capacity: 1}},
		{name: "capacity 0", input: CreateTournamentInput{Name: "Empty", Format: models.FormatSingleElimination}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := e.tournaments.CreateTournament(ctx, tt.input)
			require.NoError(t, err)

			_, err = e.tournaments.OpenTournament(ctx, created.ID)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, "invalid_transition", ErrorCode(err))

			got, err := e.tournaments.GetTournament(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusDraft, got.Status)
		})
	}
}

func TestUpdateTournament_Rules(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()
	tournament := e.openTournament(t, models.FormatRoundRobin, 4)

	format := models.FormatSingleElimination
	_, err := e.tournaments.UpdateTournament(ctx, tournament.ID, UpdateTournamentInput{Format: &format})
	require.ErrorIs(t, err, ErrInvalidTransition, "format is frozen after draft")

	for _, name := range []string{"a", "b", "c"} {
		p := e.submit(t, tournament.ID, name)
		_, err = e.registrations.ApproveRegistration(ctx, p.ID)
		require.NoError(t, err)
	}
	capacity := 2
	_, err = e.tournaments.UpdateTournament(ctx, tournament.ID, UpdateTournamentInput{Capacity: &capacity})
	require.ErrorIs(t, err, ErrValidationFailed)

	name := "Renamed Cup"
	capacity = 3
	updated, err := e.tournaments.UpdateTournament(ctx, tournament.ID, UpdateTournamentInput{Name: &name, Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 0, updated.SpotsLeft())
	assert.Greater(t, updated.Version, tournament.Version)
}

func TestStartTournament_RoundRobinFixtures(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	tournament, participants := e.startedTournament(t, models.FormatRoundRobin, 4)
	assert.Equal(t, models.StatusInProgress, tournament.Status)

	matches := e.allMatches(t, tournament.ID)
	require.Len(t, matches, 6, "one match per pair")

	pairs := make(map[[2]string]int)
	for _, m := range matches {
		require.True(t, m.Ready())
		a, b := m.HomeID.String(), m.AwayID.String()
		if a > b {
			a, b = b, a
		}
		pairs[[2]string{a, b}]++
	}
	assert.Len(t, pairs, 6)
	for i, p := range participants {
		require.NotNil(t, p.Seed)
		assert.Equal(t, i+1, *p.Seed, "seeds follow approval order")
	}

	rounds, err := e.matches.ListMatches(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, "Round 1", rounds[0].Label)
}

func TestStartTournament_KnockoutWithByes(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	tournament, participants := e.startedTournament(t, models.FormatSingleElimination, 5)

	matches := e.allMatches(t, tournament.ID)
	require.Len(t, matches, 4, "three byes leave one played match in round 1")

	bracket, err := e.bracket.GetBracket(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, bracket.Rounds, 3)
	assert.Equal(t, "Quarter-final", bracket.Rounds[0].Label)
	assert.Equal(t, "Final", bracket.Rounds[2].Label)

	first := bracket.Rounds[0]
	require.Len(t, first.Nodes, 4)
	byes := 0
	for _, node := range first.Nodes {
		if node.Bye {
			byes++
			assert.True(t, node.Resolved)
			assert.Nil(t, node.Match)
			require.NotNil(t, node.Home)
		}
	}
	assert.Equal(t, 3, byes)
	assert.Equal(t, participants[0].ID, first.Nodes[0].Home.ID, "top seed gets a bye")

	semis := bracket.Rounds[1].Nodes
	require.Len(t, semis, 2)
	assert.Equal(t, []models.NodeRef{{Round: 1, Position: 1}, {Round: 1, Position: 2}}, semis[0].Feeders)
	assert.False(t, semis[0].Resolved, "waits for the only played quarter-final")
	assert.True(t, semis[1].Resolved, "both feeders were byes")
}

func TestCancelTournament(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()

	draft, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "Short lived", Format: models.FormatRoundRobin, Capacity: 4})
	require.NoError(t, err)
	cancelled, err := e.tournaments.CancelTournament(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = e.tournaments.OpenTournament(ctx, draft.ID)
	require.ErrorIs(t, err, ErrTournamentCancelled)
	_, err = e.tournaments.CancelTournament(ctx, draft.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	started, _ := e.startedTournament(t, models.FormatRoundRobin, 3)
	match := e.allMatches(t, started.ID)[0]
	_, err = e.matches.SubmitResult(ctx, match.ID, ResultInput{HomeScore: 1, AwayScore: 0})
	require.NoError(t, err)

	_, err = e.tournaments.CancelTournament(ctx, started.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "recorded results block cancellation")
}

func TestCancelTournament_RacesWithSubmissions(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()
	tournament, _ := e.startedTournament(t, models.FormatRoundRobin, 6)
	matches := e.allMatches(t, tournament.ID)

	errs := make(chan error, len(matches))
	cancelErr := make(chan error, 1)
	start := make(chan struct{})
	for _, m := range matches {
		go func(id models.MatchView) {
			<-start
			_, err := e.matches.SubmitResult(ctx, id.ID, ResultInput{HomeScore: 2, AwayScore: 1})
			errs <- err
		}(m)
	}
	go func() {
		<-start
		_, err := e.tournaments.CancelTournament(ctx, tournament.ID)
		cancelErr <- err
	}()
	close(start)

	var recorded, refused int
	for range matches {
		err := <-errs
		switch {
		case err == nil:
			recorded++
		case errors.Is(err, ErrTournamentCancelled):
			refused++
		default:
			t.Fatalf("unexpected submission error: %v", err)
		}
	}

	if err := <-cancelErr; err == nil {
		assert.Zero(t, recorded, "no result may land after cancellation")
		assert.Equal(t, len(matches), refused)
	} else {
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Zero(t, refused)
	}
}

func TestCompleteRoundRobin_FreezesStandings(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()
	tournament, participants := e.startedTournament(t, models.FormatRoundRobin, 3)

	for _, m := range e.allMatches(t, tournament.ID) {
		home := 0
		if *m.HomeID == participants[0].ID {
			home = 3
		}
		_, err := e.matches.SubmitResult(ctx, m.ID, ResultInput{HomeScore: home, AwayScore: 0})
		require.NoError(t, err)
	}

	got, err := e.tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Nil(t, got.ChampionID)

	standings, err := e.standings.GetStandings(ctx, tournament.ID)
	require.NoError(t, err)
	assert.True(t, standings.Final)
	require.Len(t, standings.Table, 3)
	for _, row := range standings.Table {
		assert.Equal(t, 3*row.Won+row.Drawn, row.Points)
		assert.Equal(t, row.Won+row.Drawn+row.Lost, row.Played)
		assert.Equal(t, row.GoalsFor-row.GoalsAgainst, row.GoalDifference)
	}

	frozen := e.publisher.ofType(models.EventStandingsFrozen)
	require.Len(t, frozen, 1)

	_, err = e.tournaments.CancelTournament(ctx, tournament.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "completed is terminal")

	_, err = e.bracket.GetBracket(ctx, tournament.ID)
	require.ErrorIs(t, err, ErrWrongFormat)

	e.tournaments.Wait()
	require.Len(t, e.archiver.snapshots, 1)
	snapshot := e.archiver.snapshots[0]
	assert.Equal(t, models.StatusCompleted, snapshot.Tournament.Status)
	assert.Len(t, snapshot.Matches, 3)
	require.NotNil(t, snapshot.Standings)
	assert.Nil(t, snapshot.Bracket)
}

func TestListTournaments(t *testing.T) {
	e := newEngine(t, TournamentDefaults{})
	ctx := context.Background()
	e.openTournament(t, models.FormatRoundRobin, 4)
	_, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "Draft", Capacity: 2})
	require.NoError(t, err)

	status := models.StatusOpen
	open, err := e.tournaments.ListTournaments(ctx, models.TournamentFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, open, 1)

	bogus := models.TournamentStatus("paused")
	_, err = e.tournaments.ListTournaments(ctx, models.TournamentFilter{Status: &bogus})
	require.ErrorIs(t, err, ErrValidationFailed)
}
