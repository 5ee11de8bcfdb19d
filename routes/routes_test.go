package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("routes-test-secret")

type apiClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	store := repositories.NewMemoryStore()
	registry := services.NewRegistry(store, logger)
	hub := brackets.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	dispatcher := services.NewDecisionDispatcher(store, services.NewLogNotifier(logger), logger)
	tournaments := services.NewTournamentService(registry, hub, nil, services.TournamentDefaults{}, logger)
	registrations := services.NewRegistrationService(registry, dispatcher, hub, logger)
	matches := services.NewMatchService(registry, tournaments, hub, logger)
	bracket := services.NewBracketService(registry, hub, logger)
	standings := services.NewStandingsService(registry, logger)

	router := chi.NewRouter()
	SetupRoutes(router, testSecret, []string{"*"}, Handlers{
		Auth:        handlers.NewAuthHandler(services.NewAuthService("admin", string(hash), testSecret, time.Hour)),
		Tournament:  handlers.NewTournamentHandler(tournaments, standings, bracket, matches),
		Participant: handlers.NewParticipantHandler(registrations),
		Match:       handlers.NewMatchHandler(matches, bracket),
		Dashboard:   handlers.NewDashboardHandler(services.NewDashboardService(store)),
		Health:      handlers.NewHealthHandler(nil),
		WebSocket:   handlers.NewWebSocketHandler(hub, tournaments, []string{"*"}, logger),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-hub.Done()
		dispatcher.Wait()
		tournaments.Wait()
	})
	return &apiClient{t: t, server: server}
}

func (c *apiClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (c *apiClient) login() {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/v1/auth/token", map[string]string{"login": "admin", "password": "s3cret"})
	require.Equal(c.t, http.StatusOK, status, body)
	c.token = body["access_token"].(string)
}

func field(t *testing.T, body map[string]interface{}, keys ...string) interface{} {
	t.Helper()
	var cur interface{} = body
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		require.True(t, ok, "no object at %q", k)
		cur = m[k]
	}
	return cur
}

func TestOrganizerRoutesRequireToken(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do(http.MethodPost, "/api/v1/tournaments", map[string]interface{}{"name": "No auth"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := api.do(http.MethodPost, "/api/v1/auth/token", map[string]string{"login": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", body["code"])

	status, _ = api.do(http.MethodGet, "/api/v1/tournaments", nil)
	assert.Equal(t, http.StatusOK, status, "listing is public")

	status, body = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestKnockoutFlowOverHTTP(t *testing.T) {
	api := newAPI(t)
	api.login()

	status, body := api.do(http.MethodPost, "/api/v1/tournaments", map[string]interface{}{
		"name":     "Friday Final",
		"format":   "single_elimination",
		"capacity": 2,
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := field(t, body, "tournament", "id").(string)
	base := "/api/v1/tournaments/" + id

	status, _ = api.do(http.MethodPost, base+"/open", nil)
	require.Equal(t, http.StatusOK, status)

	var participantIDs []string
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		status, body = api.do(http.MethodPost, base+"/registrations", map[string]string{
			"display_name": name,
			"game_id":      name + "#1",
		})
		require.Equal(t, http.StatusCreated, status, body)
		participantIDs = append(participantIDs, field(t, body, "participant", "id").(string))
	}

	status, body = api.do(http.MethodGet, base+"/registrations?status=pending", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["participants"], 3)

	for _, pid := range participantIDs[:2] {
		status, body = api.do(http.MethodPost, "/api/v1/registrations/"+pid+"/approve", nil)
		require.Equal(t, http.StatusOK, status, body)
	}

	status, body = api.do(http.MethodPost, "/api/v1/registrations/"+participantIDs[2]+"/approve", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "capacity_exceeded", body["code"])
	assert.EqualValues(t, 2, field(t, body, "snapshot", "approved_count"))

	status, _ = api.do(http.MethodGet, base+"/standings", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = api.do(http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, base+"/matches", nil)
	require.Equal(t, http.StatusOK, status)
	rounds := body["rounds"].([]interface{})
	require.Len(t, rounds, 1)
	final := rounds[0].(map[string]interface{})["matches"].([]interface{})[0].(map[string]interface{})
	matchPath := "/api/v1/matches/" + final["id"].(string)

	status, body = api.do(http.MethodPost, matchPath+"/result", map[string]int{"home_score": -1, "away_score": 2})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_score", body["code"])

	status, body = api.do(http.MethodPost, matchPath+"/result", map[string]int{"home_score": 3, "away_score": 1})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "finished", field(t, body, "match", "status"))

	status, body = api.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", field(t, body, "tournament", "status"))
	assert.Equal(t, participantIDs[0], field(t, body, "tournament", "champion_id"))

	status, body = api.do(http.MethodPost, matchPath+"/result", map[string]int{"home_score": 0, "away_score": 1})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "result_already_final", body["code"])
}

func TestUnknownIDsAndBadInput(t *testing.T) {
	api := newAPI(t)
	api.login()

	status, _ := api.do(http.MethodGet, "/api/v1/tournaments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := api.do(http.MethodGet, "/api/v1/tournaments/8c1f3f4e-4a7c-4f59-9d0c-3a0b5a1b2c3d", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])

	status, _ = api.do(http.MethodPost, "/api/v1/tournaments", map[string]interface{}{"name": "x", "unknown": true})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSwaggerDocument(t *testing.T) {
	api := newAPI(t)

	resp, err := api.server.Client().Get(api.server.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "2.0", doc["swagger"])
}
