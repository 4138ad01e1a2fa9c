// Package handler contains HTTP request handlers for the CA member portal.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the http.HandlerFunc signature. Chi's
// router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, body, cookies)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business rules. They are the glue between HTTP and the services.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/auth"
	"github.com/sakif/ca-portal/internal/config"
	"github.com/sakif/ca-portal/internal/model"
	"github.com/sakif/ca-portal/internal/service"
)

// pageNames lists every page template. Each is parsed together with base.html.
var pageNames = []string{"landing", "login", "dashboard", "profile", "not_found"}

// PageHandler renders the HTML pages.
//
// ONE TEMPLATE SET PER PAGE:
// Every page defines {{define "content"}}. Parsing all of them into one set
// would let the last one win, so each page gets its own set of base.html + page.
type PageHandler struct {
	pages         map[string]*template.Template
	profiles      *service.ProfileService
	auths         *service.AuthService
	links         config.Links
	githubEnabled bool
	logger        *slog.Logger
}

// NewPageHandler parses the templates in templateDir. A missing or broken
// template fails here, at startup, instead of on the first request.
func NewPageHandler(
	templateDir string,
	profiles *service.ProfileService,
	auths *service.AuthService,
	links config.Links,
	githubEnabled bool,
	logger *slog.Logger,
) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:         pages,
		profiles:      profiles,
		auths:         auths,
		links:         links,
		githubEnabled: githubEnabled,
		logger:        logger,
	}, nil
}

// pageData is what every template receives.
type pageData struct {
	Title         string
	SignedIn      bool
	GitHubEnabled bool
	Links         config.Links
	User          *model.Identity
	Profile       *model.Profile
	Fields        []model.Field
}

// HandleLanding serves the landing page with the club's outbound links.
//
// HTTP: GET /
func (h *PageHandler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	_, signedIn := auth.AccountIDFromContext(r.Context())
	h.render(w, http.StatusOK, "landing", pageData{
		Title:    "CA - Centro Acadêmico",
		SignedIn: signedIn,
		Links:    h.links,
	})
}

// HandleLogin serves the sign-in / sign-up page. Signed-in members go
// straight to the dashboard.
//
// HTTP: GET /login
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.AccountIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login", pageData{
		Title:         "Entrar - CA",
		GitHubEnabled: h.githubEnabled,
	})
}

// HandleDashboard serves the profile editor for the signed-in member.
//
// HTTP: GET /dashboard
//
// Anonymous visitors, and sessions whose account no longer exists, are sent
// to /login.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.auths.CurrentUser(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.renderUnavailable(w, err)
		return
	}

	profile, err := h.profiles.Get(r.Context(), accountID)
	if err != nil {
		h.renderUnavailable(w, err)
		return
	}

	h.render(w, http.StatusOK, "dashboard", pageData{
		Title:    "Meu perfil - CA",
		SignedIn: true,
		User:     user,
		Profile:  profile,
		Fields:   model.Fields,
	})
}

// HandleProfile serves a member's public page.
//
// HTTP: GET /perfil/{handle}
func (h *PageHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	_, signedIn := auth.AccountIDFromContext(r.Context())

	profile, err := h.profiles.ResolveByHandle(r.Context(), chi.URLParam(r, "handle"))
	switch {
	case err == nil:
		h.render(w, http.StatusOK, "profile", pageData{
			Title:    profile.DisplayName() + " - CA",
			SignedIn: signedIn,
			Profile:  profile,
		})
	case errors.Is(err, apperror.ErrNotFound):
		h.render(w, http.StatusNotFound, "not_found", pageData{
			Title:    "Perfil não encontrado - CA",
			SignedIn: signedIn,
		})
	default:
		h.renderUnavailable(w, err)
	}
}

// HandleNotFound is the router's fallback for unknown paths.
func (h *PageHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	_, signedIn := auth.AccountIDFromContext(r.Context())
	h.render(w, http.StatusNotFound, "not_found", pageData{
		Title:    "Página não encontrada - CA",
		SignedIn: signedIn,
	})
}

func (h *PageHandler) renderUnavailable(w http.ResponseWriter, err error) {
	h.logger.Error("page could not load its data", slog.String("error", err.Error()))
	http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
}

// render executes the "base" template of the named page set.
//
// The page is rendered into a buffer first, so a template error still gets a
// clean 500 instead of half a page behind a 200.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
