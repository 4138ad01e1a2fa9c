package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/handler"
	"github.com/sakif/ca-portal/internal/model"
)

func sessionCookie(rr interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

type sessionBody struct {
	User model.Identity `json:"user"`
}

func TestAuthHandler_SignUp(t *testing.T) {
	app := newTestApp(t)

	rr := app.doJSON(http.MethodPost, "/auth/signup", map[string]string{
		"email":      "Joao@Example.com",
		"password":   "secret123",
		"first_name": "João",
		"last_name":  "Silva",
	}, nil)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decodeBody[sessionBody](t, rr)
	assert.Equal(t, "joao@example.com", body.User.Email)
	assert.NotEmpty(t, body.User.ID)

	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	t.Run("profile was provisioned with the names", func(t *testing.T) {
		rr := app.doJSON(http.MethodGet, "/api/profile", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		profile := decodeBody[model.Profile](t, rr)
		assert.Equal(t, "João", profile.FirstName)
		assert.Equal(t, "Silva", profile.LastName)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		rr := app.doJSON(http.MethodPost, "/auth/signup", map[string]string{
			"email": "joao@example.com", "password": "secret123", "first_name": "J", "last_name": "S",
		}, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", decodeBody[handler.ErrorResponse](t, rr).Error)
	})
}

func TestAuthHandler_SignUpValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "secret123", "first_name": "a", "last_name": "b"}, "email"},
		{"short password", map[string]string{"email": "a@b.co", "password": "123", "first_name": "a", "last_name": "b"}, "password"},
		{"malformed json", `{"email":`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.doJSON(http.MethodPost, "/auth/signup", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.wantField, decodeBody[handler.ErrorResponse](t, rr).Field)
			assert.Nil(t, sessionCookie(rr))
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	app := newTestApp(t)
	id, _ := app.signUp(t, "maria@example.com")

	t.Run("correct password", func(t *testing.T) {
		rr := app.doJSON(http.MethodPost, "/auth/login",
			map[string]string{"email": "maria@example.com", "password": "secret123"}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, id, decodeBody[sessionBody](t, rr).User.ID)
		assert.NotNil(t, sessionCookie(rr))
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := app.doJSON(http.MethodPost, "/auth/login",
			map[string]string{"email": "maria@example.com", "password": "nope-nope"}, nil)
		unknown := app.doJSON(http.MethodPost, "/auth/login",
			map[string]string{"email": "ghost@example.com", "password": "nope-nope"}, nil)

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t,
			decodeBody[handler.ErrorResponse](t, wrong).Message,
			decodeBody[handler.ErrorResponse](t, unknown).Message)
		assert.Nil(t, sessionCookie(wrong))
	})
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	app := newTestApp(t)
	_, cookie := app.signUp(t, "ana@example.com")

	rr := app.doJSON(http.MethodPost, "/auth/logout", nil, cookie)

	require.Equal(t, http.StatusOK, rr.Code)
	cleared := sessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestAuthHandler_Me(t *testing.T) {
	app := newTestApp(t)
	id, cookie := app.signUp(t, "rita@example.com")

	rr := app.doJSON(http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[model.Identity](t, rr)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "rita@example.com", me.Email)

	t.Run("anonymous", func(t *testing.T) {
		rr := app.doJSON(http.MethodGet, "/api/me", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("session for a deleted account", func(t *testing.T) {
		token, err := app.tokens.Generate("no-such-account")
		require.NoError(t, err)
		rr := app.doJSON(http.MethodGet, "/api/me", nil, &http.Cookie{Name: auth.SessionCookie, Value: token})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
