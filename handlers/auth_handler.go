package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token godoc
// @Summary Получить токен организатора
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Логин и пароль"
// @Success 200 {object} services.TokenResponse
// @Failure 401 {object} map[string]interface{} "Неверные учетные данные"
// @Router /auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	token, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, token, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
