package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/config"
	"github.com/sakif/ca-portal/internal/handler"
	"github.com/sakif/ca-portal/internal/mailer"
	"github.com/sakif/ca-portal/internal/objectstore/local"
	sqliteRepo "github.com/sakif/ca-portal/internal/repository/sqlite"
	"github.com/sakif/ca-portal/internal/service"
)

const (
	testMediaBase   = "http://localhost:8080/media/"
	testMaxAvatar   = 1 << 20
	testTemplateDir = "../../web/templates"
	testContactTo   = "ca@example.com"
)

// fakeMailer records messages instead of calling a provider.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "email-1", nil
}

// testApp is the real service graph over an in-memory database and a
// temp-dir object store, behind the same routes the server registers.
type testApp struct {
	router   http.Handler
	tokens   *auth.TokenService
	auths    *service.AuthService
	profiles *service.ProfileService
	store    *local.Store
	mailer   *fakeMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithMailer(t, &fakeMailer{}, testContactTo)
}

func newTestAppWithMailer(t *testing.T, m *fakeMailer, contactTo string) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := local.New(t.TempDir(), testMediaBase)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	profiles := service.NewProfileService(db, testMediaBase, logger)
	avatars := service.NewAvatarService(store, profiles, testMaxAvatar, logger)
	auths := service.NewAuthService(db, profiles, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)

	var relay mailer.Mailer
	if m != nil {
		relay = m
	}
	contact := service.NewContactService(relay, contactTo, "", logger)

	pages, err := handler.NewPageHandler(testTemplateDir, profiles, auths, config.Links{
		WhatsAppGroup: "https://chat.whatsapp.com/ca",
		Instagram:     "https://instagram.com/ca",
	}, false, logger)
	require.NoError(t, err)

	authH := handler.NewAuthHandler(auths, nil, tokens.TTL(), false, logger)
	profileH := handler.NewProfileHandler(profiles, logger)
	avatarH := handler.NewAvatarHandler(avatars, testMaxAvatar, logger)
	contactH := handler.NewContactHandler(contact, auths, logger)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", pages.HandleLanding)
		r.Get("/login", pages.HandleLogin)
		r.Get("/dashboard", pages.HandleDashboard)
		r.Get("/perfil/{handle}", pages.HandleProfile)
		r.Post("/api/contact", contactH.HandleSend)
	})
	r.Post("/auth/signup", authH.HandleSignUp)
	r.Post("/auth/login", authH.HandleLogin)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Get("/api/profiles/{handle}", profileH.HandleGetByHandle)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/me", authH.HandleMe)
		r.Get("/api/profile", profileH.HandleGetOwn)
		r.Patch("/api/profile", profileH.HandleUpdate)
		r.Post("/api/profile/avatar", avatarH.HandleUpload)
		r.Put("/api/profile/avatar/{key}", avatarH.HandleLink)
	})

	return &testApp{
		router:   r,
		tokens:   tokens,
		auths:    auths,
		profiles: profiles,
		store:    store,
		mailer:   m,
	}
}

// signUp creates an account and returns its id and session cookie.
func (a *testApp) signUp(t *testing.T, email string) (string, *http.Cookie) {
	t.Helper()
	res, err := a.auths.SignUp(context.Background(), service.SignUpInput{
		Email:     email,
		Password:  "secret123",
		FirstName: "João",
		LastName:  "Silva",
	})
	require.NoError(t, err)
	return res.Account.ID, &http.Cookie{Name: auth.SessionCookie, Value: res.Token}
}

// do sends req through the router, with cookie when it is not nil.
func (a *testApp) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) doJSON(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, cookie)
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
