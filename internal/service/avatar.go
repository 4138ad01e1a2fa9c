package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/media"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/objectstore"
)

// AvatarService replaces a member's avatar: upload the blob, then point the
// profile at it.
//
// TWO STEPS, NO TRANSACTION:
// The object store and the profile store cannot commit together. If the
// upload succeeds and the profile write fails, the blob stays where it is and
// the caller gets apperror.ErrAvatarNotLinked with the key, so it can retry
// only the second step with Link. Replaced blobs are never deleted.
type AvatarService struct {
	store    objectstore.Store
	profiles *ProfileService
	maxBytes int64
	decodes  *media.Limiter
	logger   *slog.Logger
}

// NewAvatarService creates an AvatarService. Uploads larger than maxBytes are
// rejected before they reach the object store.
func NewAvatarService(store objectstore.Store, profiles *ProfileService, maxBytes int64, logger *slog.Logger) *AvatarService {
	return &AvatarService{
		store:    store,
		profiles: profiles,
		maxBytes: maxBytes,
		decodes:  media.NewLimiter(0),
		logger:   logger,
	}
}

// AvatarResult is a successful replacement.
type AvatarResult struct {
	Key     string         `json:"key"`
	URI     string         `json:"avatarUri"`
	Profile *model.Profile `json:"profile"`
}

// Replace stores blob as the actor's new avatar.
//
// contentHint is the client's claimed media type. It is only used to reject
// obvious non-images early; the bytes themselves decide the stored format.
//
// OUTCOMES:
//   - ErrValidation: not an image, too big, or a non-image content hint
//   - ErrUnavailable: the upload failed; the profile was not touched
//   - ErrAvatarNotLinked: the upload succeeded but the profile write failed
func (s *AvatarService) Replace(ctx context.Context, actorID string, blob io.Reader, contentHint string) (*AvatarResult, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("sign in to change your avatar")
	}
	if contentHint != "" && !strings.HasPrefix(contentHint, "image/") && contentHint != "application/octet-stream" {
		return nil, apperror.ValidationFailed("avatar", "avatar must be an image")
	}

	img, err := s.decodes.Normalize(ctx, blob, s.maxBytes)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, apperror.Unavailable("image processing", err)
	case errors.Is(err, media.ErrTooLarge):
		return nil, apperror.ValidationFailed("avatar",
			fmt.Sprintf("avatar must be %d KB or less", s.maxBytes/1024))
	case errors.Is(err, media.ErrUnsupported):
		return nil, apperror.ValidationFailed("avatar", "avatar must be a PNG, JPEG, GIF or WebP image")
	case err != nil:
		return nil, apperror.ValidationFailed("avatar", "could not read the uploaded file")
	}

	// A fresh key per upload, so the public URL changes and caches never
	// serve the previous picture.
	key := actorID + "-" + xid.New().String() + img.Ext
	if err := objectstore.ValidateKey(key); err != nil {
		return nil, apperror.ValidationFailed("avatar", "account id cannot be used in a storage key")
	}

	if err := s.store.Upload(ctx, key, img.ContentType, bytes.NewReader(img.Data)); err != nil {
		s.logger.Error("avatar upload failed",
			slog.String("profileID", actorID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("object store", err)
	}

	return s.link(ctx, actorID, key)
}

// Link points the actor's profile at an avatar that was already uploaded.
// It is the retry path for apperror.ErrAvatarNotLinked.
func (s *AvatarService) Link(ctx context.Context, actorID, key string) (*AvatarResult, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("sign in to change your avatar")
	}
	if err := objectstore.ValidateKey(key); err != nil {
		return nil, apperror.ValidationFailed("key", "invalid avatar key")
	}
	if !strings.HasPrefix(key, actorID+"-") {
		return nil, apperror.Forbidden("that avatar belongs to another member")
	}

	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, apperror.Unavailable("object store", err)
	}
	if !ok {
		return nil, apperror.NotFound("avatar", key)
	}

	return s.link(ctx, actorID, key)
}

func (s *AvatarService) link(ctx context.Context, actorID, key string) (*AvatarResult, error) {
	uri := s.store.PublicURL(key)

	profile, err := s.profiles.Upsert(ctx, actorID, model.NewProfileEdit().Set(model.FieldAvatarURI, uri))
	if err != nil {
		s.logger.Warn("avatar stored but not linked",
			slog.String("profileID", actorID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AvatarNotLinked(key, err)
	}

	s.logger.Info("avatar replaced",
		slog.String("profileID", actorID),
		slog.String("key", key),
	)
	return &AvatarResult{Key: key, URI: uri, Profile: profile}, nil
}
