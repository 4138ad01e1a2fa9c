// Package config loads the server configuration from the environment.
//
// SOURCES, IN ORDER:
//  1. real environment variables
//  2. a .env file in the working directory, if present (never overrides 1)
//  3. the envDefault tags below
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is every setting the server reads at startup.
type Config struct {
	AppEnv   string     `env:"APP_ENV"   envDefault:"development"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	Port          int    `env:"PORT"            envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"` // defaults to http://localhost:<PORT>
	TemplateDir   string `env:"TEMPLATE_DIR"    envDefault:"web/templates"`
	StaticDir     string `env:"STATIC_DIR"      envDefault:"web/static"`

	DBPath         string `env:"DB_PATH"          envDefault:"data/portal.db"`
	MediaDir       string `env:"MEDIA_DIR"        envDefault:"data/media"`
	MaxAvatarBytes int64  `env:"MAX_AVATAR_BYTES" envDefault:"5242880"`

	JWTSecret    string        `env:"JWT_SECRET,required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL"     envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	ContactEmail string `env:"CONTACT_EMAIL"`
	ContactFrom  string `env:"CONTACT_FROM"`

	Links Links
}

// Links are the outbound links shown on the landing page. Empty ones are hidden.
type Links struct {
	WhatsAppGroup string `env:"LINK_WHATSAPP_GROUP"`
	Instagram     string `env:"LINK_INSTAGRAM"`
	CoffeeClub    string `env:"LINK_COFFEE_CLUB"`
}

// Load reads .env (if any) and the environment, fills derived defaults and
// validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = cfg.PublicBaseURL + "/auth/github/callback"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d is out of range", c.Port)
	}
	if c.MaxAvatarBytes <= 0 {
		return errors.New("config: MAX_AVATAR_BYTES must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is "development".
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// GitHubEnabled reports whether "Sign in with GitHub" is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// MediaBaseURL is the public URL prefix uploaded avatars are served under.
func (c Config) MediaBaseURL() string {
	return c.PublicBaseURL + "/media/"
}
