package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/service"
)

// ContactHandler relays the contact form to the club's inbox.
type ContactHandler struct {
	contact *service.ContactService
	auths   *service.AuthService
	logger  *slog.Logger
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(contact *service.ContactService, auths *service.AuthService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contact: contact, auths: auths, logger: logger}
}

// HandleSend relays one message.
//
// HTTP: POST /api/contact
// Auth: Optional. A signed-in member may leave "from" empty; their account
// email is used instead.
// REQUEST BODY: {"from": "...", "subject": "...", "message": "..."}
//
// RESPONSES:
//   - 200 {"id": "<provider message id>"}
//   - 400 a field is missing or malformed
//   - 500 the relay is not configured, or the provider failed
func (h *ContactHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var in service.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	if in.From == "" {
		if accountID, ok := auth.AccountIDFromContext(r.Context()); ok {
			if user, err := h.auths.CurrentUser(r.Context(), accountID); err == nil {
				in.From = user.Email
			}
		}
	}

	id, err := h.contact.Send(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	case errors.Is(err, service.ErrContactNotConfigured):
		h.logger.Error("contact form used but relay is not configured")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   string(apperror.KindInternal),
			Message: "contact form is not configured",
		})
	case apperror.KindOf(err) == apperror.KindUnavailable:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   string(apperror.KindUnavailable),
			Message: err.Error(),
		})
	default:
		writeError(w, err)
	}
}
