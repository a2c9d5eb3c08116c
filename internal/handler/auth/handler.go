package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/empathyai/companion/internal/model/user"
	authservice "github.com/empathyai/companion/internal/service/auth"
	"github.com/empathyai/companion/pkg/utils"
)

// Handler 认证相关的HTTP处理器
type Handler struct {
	authSvc *authservice.Service
}

// New 创建认证处理器
func New(authSvc *authservice.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes 注册认证路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

type sessionResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile := user.Profile{Name: payload.Name, Email: payload.Email, Phone: payload.Phone}
	u, token, err := h.authSvc.Register(r.Context(), profile, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrEmailTaken):
			utils.RespondError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, authservice.ErrInvalidCredentials):
			utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{Token: token, User: u})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := h.authSvc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			utils.RespondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{Token: token, User: u})
}

// handleLogout acknowledges sign-out. Tokens are stateless, the client
// discards its copy.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
