package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/service"
)

// ProfileHandler serves the profile JSON API.
//
//	GET   /api/profile            → the signed-in member's own profile
//	PATCH /api/profile            → partial edit of the own profile
//	GET   /api/profiles/{handle}  → a public profile by handle
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGetOwn returns the caller's profile. A member who never saved
// anything gets an empty profile, not a 404.
//
// HTTP: GET /api/profile
// Auth: Required
func (h *ProfileHandler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	profile, err := h.profiles.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdate applies a partial edit to the caller's profile.
//
// HTTP: PATCH /api/profile
// Auth: Required
// REQUEST BODY: {"handle": "joao", "status_text": ""}
//
// Only the keys present in the body are written. A key set to "" (or null)
// clears that field. Unknown keys are a 400 naming the key; a handle in use
// by someone else is a 409 handle_taken.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	var body map[string]string
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	edit := model.NewProfileEdit()
	for k, v := range body {
		edit.Set(model.Field(k), v)
	}

	profile, err := h.profiles.Upsert(r.Context(), accountID, edit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleGetByHandle resolves a public profile.
//
// HTTP: GET /api/profiles/{handle}
func (h *ProfileHandler) HandleGetByHandle(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.ResolveByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
