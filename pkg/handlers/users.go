package handlers

import (
	"net/http"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/middleware"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/services"
	"ddash-backend/pkg/utils"
)

// UsersHandler 注册、令牌与当前用户
type UsersHandler struct {
	users *services.UserService
}

func NewUsersHandler(users *services.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// POST /api/users
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, user)
}

// POST /api/auth/token
func (h *UsersHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	tokens, err := h.users.Authenticate(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, tokens)
}

// POST /api/auth/refresh
func (h *UsersHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.RefreshToken == "" {
		utils.WriteError(w, apperrors.Validation("refresh_token", "refresh_token is required"))
		return
	}
	tokens, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, tokens)
}

// POST /api/auth/logout
func (h *UsersHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())
	var req models.RefreshTokenRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.users.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, user)
}
