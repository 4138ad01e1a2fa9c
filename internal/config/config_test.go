package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no real .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, "http://localhost:8080/media/", cfg.MediaBaseURL())
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
	assert.Equal(t, "data/portal.db", cfg.DBPath)
	assert.Equal(t, int64(5<<20), cfg.MaxAvatarBytes)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.GitHubEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PORT", "9000")
	t.Setenv("PUBLIC_BASE_URL", "https://ca.example.com/")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("LINK_INSTAGRAM", "https://instagram.com/ca")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "https://ca.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "https://ca.example.com/media/", cfg.MediaBaseURL())
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "https://instagram.com/ca", cfg.Links.Instagram)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("JWT_SECRET=from-dotenv-file-123\nCONTACT_EMAIL=dotenv@example.com\nPORT=7000\n"), 0o600))
	t.Setenv("PORT", "7100")
	// Registered so t.Setenv restores them; godotenv sets them for real.
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("CONTACT_EMAIL", "")
	os.Unsetenv("CONTACT_EMAIL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv-file-123", cfg.JWTSecret)
	assert.Equal(t, "dotenv@example.com", cfg.ContactEmail)
	assert.Equal(t, 7100, cfg.Port)
}

func TestLoad_MissingSecret(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{JWTSecret: "0123456789abcdef", Port: 8080, MaxAvatarBytes: 1, TokenTTL: time.Hour}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"zero avatar limit", func(c *Config) { c.MaxAvatarBytes = 0 }},
		{"negative ttl", func(c *Config) { c.TokenTTL = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
