package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matchService   services.MatchService
	bracketService services.BracketService
}

func NewMatchHandler(ms services.MatchService, bs services.BracketService) *MatchHandler {
	return &MatchHandler{
		matchService:   ms,
		bracketService: bs,
	}
}

type scheduleInput struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.matchService.GetMatch)
}

// SubmitResultHandler обрабатывает POST /matches/{matchID}/result
func (h *MatchHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.run(w, r, func(ctx context.Context, id uuid.UUID) (*models.MatchView, error) {
		return h.matchService.SubmitResult(ctx, id, input)
	})
}

func (h *MatchHandler) MarkLiveHandler(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.matchService.MarkLive)
}

func (h *MatchHandler) MarkPendingHandler(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.matchService.MarkPending)
}

// ScheduleHandler обрабатывает PUT /matches/{matchID}/schedule. null снимает время матча.
func (h *MatchHandler) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var input scheduleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.run(w, r, func(ctx context.Context, id uuid.UUID) (*models.MatchView, error) {
		return h.matchService.ScheduleMatch(ctx, id, input.ScheduledAt)
	})
}

// AdvanceHandler повторно продвигает победителя, если продвижение не было записано.
func (h *MatchHandler) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.bracketService.Advance)
}

func (h *MatchHandler) run(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*models.MatchView, error)) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := op(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
