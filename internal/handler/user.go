package handler

import (
	"context"
	"net/http"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

// ProfileService is the profile API used by UserHandler.
type ProfileService interface {
	Get(ctx context.Context, userID int64) (*model.Profile, error)
	Update(ctx context.Context, userID int64, patch model.ProfilePatch) (*model.Profile, error)
}

// UserHandler serves the authenticated account endpoints under /api/v1/user.
type UserHandler struct {
	auth     AuthService
	profiles ProfileService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth AuthService, profiles ProfileService) *UserHandler {
	return &UserHandler{auth: auth, profiles: profiles}
}

// HandleChangePassword handles PATCH /api/v1/user/password requests.
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// HandleChangeEmail handles PATCH /api/v1/user/email requests.
func (h *UserHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ChangeEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.auth.ChangeEmail(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleGetProfile handles GET /api/v1/user/profile requests.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleUpdateProfile handles PATCH /api/v1/user/profile requests.
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var patch model.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	p, err := h.profiles.Update(r.Context(), userID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
