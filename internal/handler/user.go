package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/service"
)

// UserHandler serves account creation and account updates.
//
// HTTP:
//
//	POST /api/users  → register, responds {user, token}
//	PUT  /api/users  → partial update of the caller, responds {user}
type UserHandler struct {
	accounts *service.AuthService
	logger   *slog.Logger
}

func NewUserHandler(accounts *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// AuthResponse is the body returned by register, login and GitHub sign-in.
type AuthResponse struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User model.PublicUser `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: res.User.Public(), Token: res.Token})
}

// updateUserRequest uses pointers so an absent field can be told apart from
// an empty one. "avatar": "" removes the avatar.
type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
}

func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateUser(r.Context(), userID, service.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user.Public()})
}
