package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, email, password_hash, github_id, created_at, updated_at`

// CreateAccount inserts a new account and fills in its ID and timestamps.
//
// WHY xid FOR IDs?
// xid produces 20-character, URL-safe, roughly time-sortable IDs without any
// coordination. The account ID is also the profile ID and the avatar key
// prefix, so it must never contain a path separator.
//
// A duplicate email comes back as a *repository.ConstraintError.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = xid.New().String()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		nullableInt64(account.GitHubID),
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting account %s: %w", account.Email, constraintFromError(err))
	}
	return nil
}

// GetAccountByID retrieves an account by its ID.
// Returns apperror.ErrNotFound if no account exists with that ID.
func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return a, nil
}

// GetAccountByEmail looks an account up by email, case-insensitively.
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account by email: %w", err)
	}
	return a, nil
}

// UpsertGitHub returns the account linked to githubID.
//
// LOOKUP ORDER:
//  1. an account already linked to githubID is returned as is
//  2. otherwise an account with the same email gets githubID linked to it
//  3. otherwise a new password-less account is created
//
// All three steps run in one transaction so two concurrent callbacks for the
// same GitHub user cannot create two accounts.
func (db *DB) UpsertGitHub(ctx context.Context, githubID int64, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning github upsert: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE github_id = ?`, githubID,
	))
	switch {
	case err == nil:
		return account, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("sqlite: looking up account by github_id %d: %w", githubID, err)
	}

	now := time.Now().UTC()

	if email != "" {
		account, err = scanAccount(tx.QueryRowContext(ctx,
			`UPDATE accounts SET github_id = ?, updated_at = ? WHERE email = ?
			 RETURNING `+accountColumns,
			githubID, toMillis(now), email,
		))
		switch {
		case err == nil:
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("sqlite: committing github link: %w", err)
			}
			return account, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("sqlite: linking github_id %d: %w", githubID, constraintFromError(err))
		}
	}

	id := githubID
	account = &model.Account{
		ID:        xid.New().String(),
		Email:     email,
		GitHubID:  &id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if account.Email == "" {
		// GitHub users can hide their email; keep the column unique anyway.
		account.Email = fmt.Sprintf("github-%d@users.noreply.github.com", githubID)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, '', ?, ?, ?)`,
		account.ID, account.Email, githubID, toMillis(now), toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting github account %d: %w", githubID, constraintFromError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing github account: %w", err)
	}
	return account, nil
}

func scanAccount(s scanner) (*model.Account, error) {
	var (
		a                    model.Account
		githubID             sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &githubID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		a.GitHubID = &id
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
