package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/google/uuid"
)

type ParticipantHandler struct {
	registrationService services.RegistrationService
}

func NewParticipantHandler(rs services.RegistrationService) *ParticipantHandler {
	return &ParticipantHandler{
		registrationService: rs,
	}
}

// Register godoc
// @Summary Подать заявку на участие в турнире
// @Tags registrations
// @Description Заявка создается в статусе pending и ждет решения организатора.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body services.RegistrationInput true "Данные участника"
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 403 {object} map[string]interface{} "Регистрация закрыта"
// @Failure 404 {object} map[string]interface{} "Турнир не найден"
// @Failure 409 {object} map[string]interface{} "Турнир заполнен или game id уже занят"
// @Failure 422 {object} map[string]interface{} "Ошибка валидации"
// @Router /tournaments/{tournamentID}/registrations [post]
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.registrationService.SubmitRegistration(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список заявок турнира
// @Tags registrations
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param status query string false "pending | approved | rejected"
// @Success 200 {object} map[string]interface{} "Заявки в порядке подачи"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations [get]
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var participants []*models.Participant
	switch statusStr := r.URL.Query().Get("status"); {
	case statusStr == string(models.ParticipantPending):
		participants, err = h.registrationService.GetPendingRegistrations(r.Context(), tournamentID)
	case statusStr == "":
		participants, err = h.registrationService.ListRegistrations(r.Context(), tournamentID, nil)
	default:
		status := models.ParticipantStatus(statusStr)
		if !status.Valid() {
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
		participants, err = h.registrationService.ListRegistrations(r.Context(), tournamentID, &status)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if participants == nil {
		participants = []*models.Participant{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get обрабатывает GET /registrations/{participantID}
func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.GetRegistration)
}

// Approve godoc
// @Summary Одобрить заявку
// @Tags registrations
// @Produce json
// @Param participantID path string true "Participant ID"
// @Success 200 {object} map[string]interface{} "Заявка одобрена, назначен посев"
// @Failure 409 {object} map[string]interface{} "Заявка уже рассмотрена или мест нет"
// @Failure 422 {object} map[string]interface{} "Оплата не подтверждена"
// @Security BearerAuth
// @Router /registrations/{participantID}/approve [post]
func (h *ParticipantHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.ApproveRegistration)
}

// Reject godoc
// @Summary Отклонить заявку
// @Tags registrations
// @Produce json
// @Param participantID path string true "Participant ID"
// @Success 200 {object} map[string]interface{} "Заявка отклонена"
// @Failure 409 {object} map[string]interface{} "Заявка уже одобрена"
// @Security BearerAuth
// @Router /registrations/{participantID}/reject [post]
func (h *ParticipantHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.RejectRegistration)
}

func (h *ParticipantHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.ConfirmPayment)
}

// Withdraw обрабатывает DELETE /registrations/{participantID}
func (h *ParticipantHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.WithdrawRegistration(r.Context(), participantID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ParticipantHandler) decide(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*models.Participant, error)) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := op(r.Context(), participantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
