package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/mailer"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory implementations of the repository and collaborator
// interfaces. Each one counts its calls and can be told to fail, which is
// how the tests prove a store was (or was not) contacted.

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeProfileRepo enforces the handle UNIQUE constraint the way SQLite does:
// by failing the write with a ConstraintError.
type fakeProfileRepo struct {
	mu        sync.Mutex
	rows      map[string]*model.Profile
	calls     int
	upsertErr error
	findErr   error
	// duplicate makes FindByHandle return every row twice, simulating a
	// store whose UNIQUE constraint was bypassed.
	duplicate bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{rows: make(map[string]*model.Profile)}
}

func (f *fakeProfileRepo) Upsert(_ context.Context, id string, edit model.ProfileEdit, updatedAt time.Time) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}

	if handle, ok := edit.Get(model.FieldHandle); ok && handle != "" {
		for otherID, p := range f.rows {
			if otherID != id && p.Handle == handle {
				return nil, &repository.ConstraintError{
					Constraint: repository.ConstraintProfileHandle,
					Err:        errors.New("UNIQUE constraint failed: profiles.handle"),
				}
			}
		}
	}

	p, ok := f.rows[id]
	if !ok {
		p = &model.Profile{ID: id, CreatedAt: updatedAt, Social: map[model.SocialNetwork]string{}}
		f.rows[id] = p
	}
	edit.Apply(p)
	p.UpdatedAt = updatedAt

	out := *p
	return &out, nil
}

func (f *fakeProfileRepo) GetProfileByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.rows[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	out := *p
	return &out, nil
}

func (f *fakeProfileRepo) FindByHandle(_ context.Context, handle string, limit int) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.Profile
	for _, p := range f.rows {
		if p.Handle == handle {
			out = append(out, *p)
			if f.duplicate {
				out = append(out, *p)
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProfileRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAccountRepo stores accounts by ID and enforces unique emails.
type fakeAccountRepo struct {
	accounts  map[string]*model.Account
	nextID    int
	createErr error
	getErr    error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) CreateAccount(_ context.Context, a *model.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return &repository.ConstraintError{
				Constraint: repository.ConstraintAccountEmail,
				Err:        errors.New("UNIQUE constraint failed: accounts.email"),
			}
		}
	}
	f.nextID++
	a.ID = "acc" + string(rune('0'+f.nextID))
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.accounts[a.ID] = &stored
	return nil
}

func (f *fakeAccountRepo) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	out := *a
	return &out, nil
}

func (f *fakeAccountRepo) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (f *fakeAccountRepo) UpsertGitHub(_ context.Context, githubID int64, email string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.GitHubID != nil && *a.GitHubID == githubID {
			out := *a
			return &out, nil
		}
	}
	id := githubID
	a := &model.Account{Email: email, GitHubID: &id}
	if err := f.CreateAccount(context.Background(), a); err != nil {
		return nil, err
	}
	return a, nil
}

// fakeStore is an in-memory objectstore.Store.
type fakeStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	uploads   int
	uploadErr error
	existsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

const fakeStoreBase = "http://localhost:8080/media/"

func (s *fakeStore) Upload(_ context.Context, key, _ string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.blobs[key] = data
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return fakeStoreBase + key
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fakeMailer records every message it is asked to send.
type fakeMailer struct {
	sent    []mailer.Message
	sendErr error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, msg)
	return "email-" + strings.Repeat("x", len(m.sent)), nil
}

// failingReader errors on the first Read.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
