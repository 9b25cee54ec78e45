package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/service"
)

const msgAccountDeleted = "User has been deleted"

// ProfileHandler serves /api/profiles.
//
// HTTP:
//
//	POST|PUT /api/profiles                 → create or patch the caller's profile
//	GET      /api/profiles                 → every profile
//	GET      /api/profiles/me              → the caller's profile
//	GET      /api/profiles/users/{userID}  → profile by owner
//	GET      /api/profiles/{profileID}     → profile by id
//	DELETE   /api/profiles                 → delete the caller's account and all content
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// skillList accepts either a JSON array or a comma-separated string.
type skillList []string

func (s *skillList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	var csv string
	if err := json.Unmarshal(data, &csv); err != nil {
		return errors.New("skills must be an array or a comma-separated string")
	}
	*s = strings.Split(csv, ",")
	return nil
}

type profileRequest struct {
	Bio    *string    `json:"bio"`
	Skills *skillList `json:"skills"`
}

func (h *ProfileHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.ProfileInput{Bio: req.Bio}
	if req.Skills != nil {
		skills := []string(*req.Skills)
		in.Skills = &skills
	}

	profile, err := h.profiles.Upsert(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	h.byUser(w, r, userID)
}

func (h *ProfileHandler) HandleByUser(w http.ResponseWriter, r *http.Request) {
	h.byUser(w, r, chi.URLParam(r, "userID"))
}

func (h *ProfileHandler) byUser(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := h.profiles.GetByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) HandleByID(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByID(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleDelete removes the caller's account with everything it owns.
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.profiles.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, msgAccountDeleted)
}
