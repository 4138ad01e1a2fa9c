// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New():
//	  sqlite.DB ─────────────┬→ ProfileService ─┬→ ProfileHandler, PageHandler
//	  local.Store ───────────┼→ AvatarService ──┴→ AvatarHandler
//	  TokenService, bcrypt ──┴→ AuthService ────→ AuthHandler
//	  resend.Mailer ─────────→ ContactService ──→ ContactHandler
//
// This is the "composition root" pattern: every dependency is built here and
// nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/config"
	"github.com/sakif/ca-portal/internal/handler"
	"github.com/sakif/ca-portal/internal/mailer"
	resendmailer "github.com/sakif/ca-portal/internal/mailer/resend"
	"github.com/sakif/ca-portal/internal/middleware"
	"github.com/sakif/ca-portal/internal/objectstore/local"
	sqliteRepo "github.com/sakif/ca-portal/internal/repository/sqlite"
	"github.com/sakif/ca-portal/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. It is closed by Close, which Start
// calls on the way out, so pending WAL writes are flushed and the file lock
// is released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and object store, builds every service and handler,
// and registers the routes.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not confused with the
// sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the router, for tests that drive the server with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes builds the dependency graph and registers every route.
//
// ROUTE STRUCTURE:
//
//	GET    /                            landing page
//	GET    /login                       sign in / sign up page
//	GET    /dashboard                   profile editor (redirects to /login when anonymous)
//	GET    /perfil/{handle}             public profile page
//	POST   /auth/signup                 create account
//	POST   /auth/login                  sign in with email + password
//	POST   /auth/logout                 clear the session cookie
//	GET    /auth/github/login           (only with GitHub configured)
//	GET    /auth/github/callback        (only with GitHub configured)
//	GET    /api/me                      {id, email} of the session
//	GET    /api/profile                 own profile
//	PATCH  /api/profile                 partial edit of own profile
//	POST   /api/profile/avatar          upload a new avatar
//	PUT    /api/profile/avatar/{key}    retry linking an uploaded avatar
//	GET    /api/profiles/{handle}       public profile JSON
//	POST   /api/contact                 relay the contact form
//	GET    /healthz                     database ping
//	GET    /static/*, /media/*          files
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the access log and the response header carry the
// same id. Recoverer sits inside the logger so a panic is logged as a 500.
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Collaborators ===
	store, err := local.New(cfg.MediaDir, cfg.MediaBaseURL())
	if err != nil {
		return fmt.Errorf("creating object store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var mail mailer.Mailer
	if cfg.ResendAPIKey != "" {
		mail = resendmailer.New(cfg.ResendAPIKey)
	} else {
		s.logger.Warn("RESEND_API_KEY not set, the contact form will answer 500")
	}

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	// === Services ===
	profileService := service.NewProfileService(s.db, cfg.MediaBaseURL(), s.logger)
	avatarService := service.NewAvatarService(store, profileService, cfg.MaxAvatarBytes, s.logger)
	authService := service.NewAuthService(s.db, profileService, tokens, auth.NewPasswordService(), s.logger)
	contactService := service.NewContactService(mail, cfg.ContactEmail, cfg.ContactFrom, s.logger)

	// === Handlers ===
	pageHandler, err := handler.NewPageHandler(cfg.TemplateDir, profileService, authService,
		cfg.Links, github != nil, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(authService, github, tokens.TTL(), cfg.CookieSecure, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	avatarHandler := handler.NewAvatarHandler(avatarService, cfg.MaxAvatarBytes, s.logger)
	contactHandler := handler.NewContactHandler(contactService, authService, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	// === Files ===
	// GET /static/css/style.css → {StaticDir}/css/style.css
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	s.router.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(store.Dir()))))

	s.router.Get("/healthz", s.handleHealth)

	// === Pages ===
	s.router.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", pageHandler.HandleLanding)
		r.Get("/login", pageHandler.HandleLogin)
		r.Get("/dashboard", pageHandler.HandleDashboard)
		r.Get("/perfil/{handle}", pageHandler.HandleProfile)
	})
	s.router.NotFound(optionalAuth(http.HandlerFunc(pageHandler.HandleNotFound)).ServeHTTP)

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/profiles/{handle}", profileHandler.HandleGetByHandle)
		r.With(optionalAuth).Post("/contact", contactHandler.HandleSend)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Get("/profile", profileHandler.HandleGetOwn)
			r.Patch("/profile", profileHandler.HandleUpdate)
			r.Post("/profile/avatar", avatarHandler.HandleUpload)
			r.Put("/profile/avatar/{key}", avatarHandler.HandleLink)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second, // avatar uploads on slow phones
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.PublicBaseURL),
			slog.String("database", s.config.DBPath),
			slog.String("media", s.config.MediaDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
