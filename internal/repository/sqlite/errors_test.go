package sqlite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/ca-portal/internal/repository"
)

func TestConstraintFromError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantConstraint string // "" means the error must pass through unchanged
	}{
		{
			name:           "profile handle",
			err:            errors.New("constraint failed: UNIQUE constraint failed: profiles.handle (2067)"),
			wantConstraint: repository.ConstraintProfileHandle,
		},
		{
			name:           "account email",
			err:            fmt.Errorf("exec: %w", errors.New("UNIQUE constraint failed: accounts.email")),
			wantConstraint: repository.ConstraintAccountEmail,
		},
		{
			name:           "unique on a column nobody classifies",
			err:            errors.New("UNIQUE constraint failed: other.col"),
			wantConstraint: "unknown",
		},
		{
			name: "not a constraint error",
			err:  errors.New("database is locked"),
		},
		{
			name: "not null is not unique",
			err:  errors.New("NOT NULL constraint failed: profiles.created_at"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := constraintFromError(tt.err)

			var constraintErr *repository.ConstraintError
			isConstraint := errors.As(got, &constraintErr)

			if tt.wantConstraint == "" {
				if isConstraint {
					t.Fatalf("got ConstraintError %q, want the error unchanged", constraintErr.Constraint)
				}
				if got != tt.err {
					t.Errorf("error was rewrapped: %v", got)
				}
				return
			}

			if !isConstraint {
				t.Fatalf("got %T, want *repository.ConstraintError", got)
			}
			if constraintErr.Constraint != tt.wantConstraint {
				t.Errorf("Constraint = %q, want %q", constraintErr.Constraint, tt.wantConstraint)
			}
			if !errors.Is(got, tt.err) {
				t.Error("ConstraintError must keep the driver error in its chain")
			}
		})
	}
}

func TestConstraintFromError_Nil(t *testing.T) {
	if err := constraintFromError(nil); err != nil {
		t.Errorf("constraintFromError(nil) = %v, want nil", err)
	}
}
