// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, classifies outcomes
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests inject
// in-memory fakes and the handlers never see SQL or driver errors.
//
// EXPLICIT ACTOR:
// Every operation that touches a member's data takes the actor ID as an
// argument. Nothing here reads a session or a cookie; the handler resolves the
// signed-in account and passes its ID in.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/repository"
)

// MaxHandleLength caps a normalized handle. It keeps /perfil/{handle} URLs short.
const MaxHandleLength = 30

// ProfileService is the Profile Upsert Engine and the Public Profile Resolver.
type ProfileService struct {
	repo       repository.ProfileRepository
	avatarBase string // avatar_uri edits must start with this, or be empty
	logger     *slog.Logger
	now        func() time.Time
}

// NewProfileService creates a ProfileService.
//
// avatarBase is the object store's public URL prefix (for example
// "http://localhost:8080/media/"). An empty avatarBase accepts any avatar URI.
func NewProfileService(repo repository.ProfileRepository, avatarBase string, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:       repo,
		avatarBase: avatarBase,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeHandle lowercases s and drops every character outside [a-z0-9_].
// Surrounding whitespace goes too. NormalizeHandle(NormalizeHandle(s)) ==
// NormalizeHandle(s) for every s.
func NormalizeHandle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Upsert merges edit onto the actor's profile, creating the row on first use.
//
// OUTCOMES (exactly one):
//   - the stored profile, nil error
//   - apperror.ErrValidation: a field failed a check; the store was not contacted
//   - apperror.ErrHandleTaken: another profile already owns the handle
//   - apperror.ErrUnavailable: anything else the store reported
//
// NO PRE-CHECK FOR THE HANDLE:
// Looking the handle up first and then writing would race with another member
// claiming the same handle in between. The write is attempted directly and the
// UNIQUE constraint decides; its violation is what becomes ErrHandleTaken.
//
// An empty edit is allowed: it creates the row if needed and bumps updated_at.
func (s *ProfileService) Upsert(ctx context.Context, actorID string, edit model.ProfileEdit) (*model.Profile, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("sign in to edit your profile")
	}

	clean, err := s.validateEdit(edit)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.Upsert(ctx, actorID, clean, s.now())
	if err != nil {
		return nil, s.classifyWriteError(actorID, clean, err)
	}

	s.logger.Info("profile saved",
		slog.String("profileID", actorID),
		slog.Int("fields", len(clean)),
	)
	return profile, nil
}

// validateEdit checks every field and returns a normalized copy of edit.
// The caller's map is never modified.
func (s *ProfileService) validateEdit(edit model.ProfileEdit) (model.ProfileEdit, error) {
	clean := make(model.ProfileEdit, len(edit))
	for _, f := range edit.Fields() {
		value, _ := edit.Get(f)

		if !f.Known() {
			return nil, apperror.ValidationFailed(string(f), fmt.Sprintf("unknown field %q", f))
		}

		switch f {
		case model.FieldHandle:
			handle := NormalizeHandle(value)
			if handle == "" {
				return nil, apperror.ValidationFailed(string(f),
					"handle must contain at least one letter, digit or underscore")
			}
			if len(handle) > MaxHandleLength {
				return nil, apperror.ValidationFailed(string(f),
					fmt.Sprintf("handle must be %d characters or less", MaxHandleLength))
			}
			value = handle

		case model.FieldAvatarURI:
			value = strings.TrimSpace(value)
			if value != "" && s.avatarBase != "" && !strings.HasPrefix(value, s.avatarBase) {
				return nil, apperror.ValidationFailed(string(f),
					"avatar must be uploaded through the avatar endpoint")
			}
		}

		clean.Set(f, value)
	}
	return clean, nil
}

// classifyWriteError turns a store error into exactly one apperror kind.
// Only a violation of the handle constraint is a collision; unknown
// constraints are store failures like any other.
func (s *ProfileService) classifyWriteError(actorID string, edit model.ProfileEdit, err error) error {
	var constraintErr *repository.ConstraintError
	if errors.As(err, &constraintErr) && constraintErr.Constraint == repository.ConstraintProfileHandle {
		handle, _ := edit.Get(model.FieldHandle)
		s.logger.Info("handle collision",
			slog.String("profileID", actorID),
			slog.String("handle", handle),
		)
		return apperror.HandleTaken(handle, err)
	}

	s.logger.Error("failed to save profile",
		slog.String("profileID", actorID),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable("profile store", err)
}

// Get returns the actor's own profile, as shown on the dashboard.
//
// A member who has never saved anything gets an empty profile carrying their
// ID, not an error: the dashboard renders the same form either way.
func (s *ProfileService) Get(ctx context.Context, actorID string) (*model.Profile, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("sign in to see your profile")
	}

	profile, err := s.repo.GetProfileByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &model.Profile{ID: actorID, Social: map[model.SocialNetwork]string{}}, nil
		}
		s.logger.Error("failed to load profile",
			slog.String("profileID", actorID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("profile store", err)
	}
	return profile, nil
}

// ResolveByHandle returns the public profile registered under handle.
//
// handle is normalized first, so "@Joao_123" and "joao_123" resolve to the
// same profile. Zero rows is apperror.ErrNotFound. Two or more rows cannot
// happen while the UNIQUE constraint holds; if it ever does, the store is
// inconsistent, which is logged and reported as apperror.ErrUnavailable.
func (s *ProfileService) ResolveByHandle(ctx context.Context, handle string) (*model.Profile, error) {
	normalized := NormalizeHandle(handle)
	if normalized == "" {
		return nil, apperror.NotFound("profile", handle)
	}

	// Ask for two so a duplicate is visible.
	rows, err := s.repo.FindByHandle(ctx, normalized, 2)
	if err != nil {
		s.logger.Error("failed to resolve handle",
			slog.String("handle", normalized),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("profile store", err)
	}

	switch len(rows) {
	case 0:
		return nil, apperror.NotFound("profile", normalized)
	case 1:
		return &rows[0], nil
	default:
		ids := make([]string, len(rows))
		for i, p := range rows {
			ids[i] = p.ID
		}
		s.logger.Error("store consistency fault: handle resolves to more than one profile",
			slog.String("handle", normalized),
			slog.Any("profileIDs", ids),
		)
		return nil, apperror.Unavailable("profile store",
			fmt.Errorf("handle %q matched %d profiles", normalized, len(rows)))
	}
}
