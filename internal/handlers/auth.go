package handlers

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/auth"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

type AuthHandler struct {
	Users *services.UserService
	Auth  *auth.Service
}

func NewAuthHandler(users *services.UserService, authSvc *auth.Service) *AuthHandler {
	return &AuthHandler{Users: users, Auth: authSvc}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	v := validation.Violations{}
	validation.Required("username", strings.TrimSpace(req.Username), v)
	validation.Required("password", req.Password, v)
	if err := v.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Users.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		log.WithField("username", req.Username).Warn("login failed")
		writeError(w, r, err)
		return
	}
	token, err := h.Auth.GenerateToken(u.ID, u.Username, u.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Auth.SetCookie(w, r, token)
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	httpx.JSON(w, http.StatusOK, deleted{Success: true})
}

// Me returns the user behind the request token. Must be mounted behind RequireAdmin.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	u, err := h.Users.Get(r.Context(), c.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}
