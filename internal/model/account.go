package model

import "time"

// Account is a sign-in identity issued by the local identity provider.
//
// The Account ID is also the Profile ID: a member has exactly one account and at
// most one profile row, and the profile row is keyed by this ID.
//
// WHY GitHubID *int64?
// Most members sign up with email and password and never link GitHub. A nil
// pointer maps to SQL NULL, and the UNIQUE constraint on github_id ignores NULLs,
// so any number of accounts can exist without a GitHub link.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the minimal view of the current user that the rest of the app needs.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity returns the public identity of the account.
func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Email: a.Email}
}
