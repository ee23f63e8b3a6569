package handlers

import (
	"net/http"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProfileHandler serves the caller's own profile
type ProfileHandler struct {
	responder
	profiles database.ProfileRepositoryInterface
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles database.ProfileRepositoryInterface, opts Options) *ProfileHandler {
	return &ProfileHandler{responder: newResponder(opts), profiles: profiles}
}

// RegisterRoutes registers profile routes on the given router
// The router should already have the /profile prefix
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetProfile).Methods("GET")
	r.HandleFunc("", h.UpdateProfile).Methods("PATCH")
	r.HandleFunc("", h.DeleteProfile).Methods("DELETE")
}

// UpdateProfileRequest represents a profile update. A null or blank name clears it.
type UpdateProfileRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
}

// GetProfile returns the caller's profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}

	profile, err := h.profiles.Get(r.Context(), id.UserID)
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile changes the caller's display name
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}

	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			req.Name = nil
		} else {
			req.Name = &name
		}
	}

	profile, err := h.profiles.UpdateName(r.Context(), id.UserID, req.Name)
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// DeleteProfile removes the caller's profile and, by cascade, every task they own
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}

	if err := h.profiles.Delete(r.Context(), id.UserID); err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	h.logger.Info("profile_deleted", zap.String("user_id", id.UserID.String()))
	w.WriteHeader(http.StatusNoContent)
}
