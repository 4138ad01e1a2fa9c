package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/service"
)

// avatarFormField is the multipart field carrying the image.
const avatarFormField = "avatar"

// multipartOverhead is headroom for boundaries and part headers on top of the
// image size limit.
const multipartOverhead = 64 << 10

// AvatarHandler serves avatar uploads.
//
//	POST /api/profile/avatar        → upload and link a new avatar
//	PUT  /api/profile/avatar/{key}  → retry linking an already uploaded avatar
type AvatarHandler struct {
	avatars  *service.AvatarService
	maxBytes int64
	logger   *slog.Logger
}

// NewAvatarHandler creates an AvatarHandler. maxBytes is the largest accepted
// image; the request body limit adds multipartOverhead to it.
func NewAvatarHandler(avatars *service.AvatarService, maxBytes int64, logger *slog.Logger) *AvatarHandler {
	return &AvatarHandler{avatars: avatars, maxBytes: maxBytes, logger: logger}
}

// HandleUpload replaces the caller's avatar.
//
// HTTP: POST /api/profile/avatar (multipart/form-data, field "avatar")
// Auth: Required
//
// STREAMING, NOT ParseMultipartForm:
// ParseMultipartForm spools the whole upload to memory or a temp file before
// the handler sees it. Reading the part directly hands the stream to the
// service, which already enforces its own size limit.
//
// A 502 avatar_not_linked response carries "key": the image is stored, and
// PUT /api/profile/avatar/{key} finishes the job.
func (h *AvatarHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	part, err := avatarPart(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer part.Close()

	result, err := h.avatars.Replace(r.Context(), accountID, part, part.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleLink points the caller's profile at an avatar that was uploaded
// earlier but never linked.
//
// HTTP: PUT /api/profile/avatar/{key}
// Auth: Required
func (h *AvatarHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	result, err := h.avatars.Link(r.Context(), accountID, chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// avatarPart returns the first multipart part named avatarFormField.
func avatarPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperror.ValidationFailed(avatarFormField, "expected a multipart/form-data upload")
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperror.ValidationFailed(avatarFormField, "avatar file is required")
		}
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, apperror.ValidationFailed(avatarFormField, "avatar file is too large")
			}
			return nil, apperror.ValidationFailed(avatarFormField, "malformed multipart body")
		}
		if part.FormName() == avatarFormField {
			return part, nil
		}
		part.Close()
	}
}
