package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/repository"
)

// MinPasswordLength matches what the signup form asks for.
const MinPasswordLength = 6

// invalidCredentials is the single message for every failed sign-in, so the
// response never tells whether the email has an account.
const invalidCredentials = "invalid email or password"

// AuthService is the local identity provider.
//
//	AuthHandler (HTTP) → AuthService → AccountRepository (DB)
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
//	                                 ↘ ProfileService (first profile write on signup)
//
// The rest of the app only consumes the account ID it returns.
type AuthService struct {
	accounts  repository.AccountRepository
	profiles  *ProfileService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	accounts repository.AccountRepository,
	profiles *ProfileService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the account and its session token, so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// SignUpInput is the signup form. FirstName and LastName are the metadata the
// identity provider passes on to the first profile write.
type SignUpInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate checks the form with ozzo-validation.
func (in SignUpInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat, validation.Length(0, 254)),
		validation.Field(&in.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 60)),
		validation.Field(&in.LastName, validation.Required, validation.Length(1, 60)),
	)
}

// SignUp creates an account, provisions its profile and signs it in.
//
// PROVISIONING:
// The profile row is created right away with the submitted names, through the
// same upsert the dashboard uses. If that write fails the account still
// exists and the member can fill the profile in later, so the failure is
// logged and signup succeeds.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := fromValidation(in.Validate()); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password: must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	account := &model.Account{Email: in.Email, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		var constraintErr *repository.ConstraintError
		if errors.As(err, &constraintErr) && constraintErr.Constraint == repository.ConstraintAccountEmail {
			return nil, apperror.Conflict("account", in.Email)
		}
		s.logger.Error("failed to create account", slog.String("error", err.Error()))
		return nil, apperror.Unavailable("account store", err)
	}

	edit := model.NewProfileEdit().
		Set(model.FieldFirstName, in.FirstName).
		Set(model.FieldLastName, in.LastName)
	if _, err := s.profiles.Upsert(ctx, account.ID, edit); err != nil {
		s.logger.Warn("account created without profile",
			slog.String("accountID", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("account created", slog.String("accountID", account.ID))
	return s.issue(account)
}

// SignInWithPassword verifies email and password and returns a new session.
// Every credential failure is the same apperror.ErrUnauthorized.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.VerifyDummy(password)
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		s.logger.Error("failed to load account", slog.String("error", err.Error()))
		return nil, apperror.Unavailable("account store", err)
	}

	// GitHub-only accounts have no password to match.
	if account.PasswordHash == "" {
		_ = s.passwords.VerifyDummy(password)
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unreadable",
				slog.String("accountID", account.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	s.logger.Info("account signed in", slog.String("accountID", account.ID))
	return s.issue(account)
}

// LoginOrRegisterGitHub signs in the account linked to a GitHub user,
// creating it on first login. A brand new profile gets the GitHub login as
// its social_github value.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	account, err := s.accounts.UpsertGitHub(ctx, ghUser.ID, ghUser.Email)
	if err != nil {
		s.logger.Error("failed to upsert GitHub account",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("account store", err)
	}

	if profile, err := s.profiles.Get(ctx, account.ID); err == nil && profile.CreatedAt.IsZero() {
		edit := model.NewProfileEdit().Set(model.FieldSocialGitHub, ghUser.Login)
		if _, err := s.profiles.Upsert(ctx, account.ID, edit); err != nil {
			s.logger.Warn("GitHub account created without profile",
				slog.String("accountID", account.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("account signed in via GitHub",
		slog.String("accountID", account.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(account)
}

// CurrentUser returns {id, email} for a signed-in account.
// A session for an account that no longer exists is apperror.ErrUnauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, accountID string) (*model.Identity, error) {
	if accountID == "" {
		return nil, apperror.Unauthorized("sign in required")
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("sign in required")
		}
		return nil, apperror.Unavailable("account store", err)
	}

	id := account.Identity()
	return &id, nil
}

// ValidateToken returns the account ID inside a session token.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	accountID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return accountID, nil
}

func (s *AuthService) issue(account *model.Account) (*AuthResult, error) {
	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for account %s: %w", account.ID, err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}
