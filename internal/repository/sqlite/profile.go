package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/repository"
)

// compile-time check that *DB implements repository.ProfileRepository
var _ repository.ProfileRepository = (*DB)(nil)

// profileColumns is the SELECT/RETURNING list scanned by scanProfile.
const profileColumns = `id, handle, first_name, last_name, avatar_uri, status_text,
	social_instagram, social_github, social_telegram, social_steam, social_whatsapp,
	course, neighborhood, gender, orientation, created_at, updated_at`

// Upsert merges edit onto the profile row for id and returns the stored row.
//
// ONE STATEMENT:
//
//	INSERT INTO profiles (id, <edited cols>, created_at, updated_at) VALUES (...)
//	ON CONFLICT(id) DO UPDATE SET <edited col> = excluded.<edited col>, ...
//	RETURNING ...
//
// Only the edited columns appear in the SET list, so untouched columns keep
// their stored value, and a concurrent writer can never observe half an edit.
// When two requests write the same row, the one SQLite runs last wins.
//
// A UNIQUE violation on handle comes back as a *repository.ConstraintError.
func (db *DB) Upsert(ctx context.Context, id string, edit model.ProfileEdit, updatedAt time.Time) (*model.Profile, error) {
	fields := edit.Fields()

	cols := make([]string, 0, len(fields)+3)
	args := make([]any, 0, len(fields)+3)
	sets := make([]string, 0, len(fields)+1)

	cols = append(cols, "id")
	args = append(args, id)

	for _, f := range fields {
		// Field names are interpolated into the statement, so only the fixed
		// set of known columns is ever allowed through.
		if !f.Known() {
			return nil, fmt.Errorf("sqlite: upserting profile %s: unknown field %q", id, f)
		}
		value, _ := edit.Get(f)
		col := string(f)
		cols = append(cols, col)
		if f == model.FieldHandle && value == "" {
			args = append(args, nil) // no handle is NULL, so UNIQUE ignores it
		} else {
			args = append(args, value)
		}
		sets = append(sets, col+" = excluded."+col)
	}

	ms := toMillis(updatedAt)
	cols = append(cols, "created_at", "updated_at")
	args = append(args, ms, ms)
	sets = append(sets, "updated_at = excluded.updated_at")

	query := fmt.Sprintf(
		`INSERT INTO profiles (%s) VALUES (%s)
		 ON CONFLICT(id) DO UPDATE SET %s
		 RETURNING %s`,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(sets, ", "),
		profileColumns,
	)

	p, err := scanProfile(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting profile %s: %w", id, constraintFromError(err))
	}
	return p, nil
}

// GetProfileByID retrieves the profile owned by account id.
// Returns apperror.ErrNotFound if the account has never saved a profile.
func (db *DB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return p, nil
}

// FindByHandle returns up to limit profiles with the given handle.
//
// The UNIQUE constraint means there should be at most one. Callers ask for two
// so that a second row, if the constraint was ever bypassed, is noticed rather
// than silently hidden.
func (db *DB) FindByHandle(ctx context.Context, handle string, limit int) ([]model.Profile, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE handle = ? ORDER BY created_at LIMIT ?`,
		handle, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding profile by handle %q: %w", handle, err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profile rows: %w", err)
	}
	return profiles, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*model.Profile, error) {
	var (
		p                    model.Profile
		handle               sql.NullString
		instagram, github    string
		telegram, steam      string
		whatsapp             string
		createdAt, updatedAt int64
	)
	err := s.Scan(
		&p.ID,
		&handle,
		&p.FirstName,
		&p.LastName,
		&p.AvatarURI,
		&p.StatusText,
		&instagram,
		&github,
		&telegram,
		&steam,
		&whatsapp,
		&p.Course,
		&p.Neighborhood,
		&p.Gender,
		&p.Orientation,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Handle = handle.String
	p.Social = map[model.SocialNetwork]string{
		model.SocialInstagram: instagram,
		model.SocialGitHub:    github,
		model.SocialTelegram:  telegram,
		model.SocialSteam:     steam,
		model.SocialWhatsApp:  whatsapp,
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}
