// Package repository declares the storage contracts the services depend on.
//
// Services only see these interfaces. The sqlite package implements them, and
// tests use in-memory fakes.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/ca-portal/internal/model"
)

// ConstraintProfileHandle identifies the uniqueness constraint on profiles.handle.
const ConstraintProfileHandle = "profiles.handle"

// ConstraintAccountEmail identifies the uniqueness constraint on accounts.email.
const ConstraintAccountEmail = "accounts.email"

// ConstraintError is returned by a store when a write violates a named
// constraint. Adapters translate driver-specific errors into this type so the
// service layer can classify failures without knowing the driver.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// ProfileRepository is the Profile Store.
type ProfileRepository interface {
	// Upsert merges edit onto the row for id, creating it when absent, and
	// returns the resulting row. The write is a single atomic statement.
	// Fields must already be validated; updatedAt is stored as given.
	Upsert(ctx context.Context, id string, edit model.ProfileEdit, updatedAt time.Time) (*model.Profile, error)

	// GetProfileByID returns the row for id, or an apperror.ErrNotFound error.
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByHandle returns every row whose handle equals handle, at most limit rows.
	FindByHandle(ctx context.Context, handle string, limit int) ([]model.Profile, error)
}

// AccountRepository stores identity-provider accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	// UpsertGitHub returns the account linked to githubID, creating one with
	// email when none exists.
	UpsertGitHub(ctx context.Context, githubID int64, email string) (*model.Account, error)
}
