// Package main is the entry point for the CA member portal.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration
// 2. Create the logger
// 3. Build and start the server
//
// All actual logic lives in internal/ packages.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/ca-portal/internal/config"
	"github.com/sakif/ca-portal/internal/logging"
	"github.com/sakif/ca-portal/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Environment variables, optionally from a .env file. See internal/config
	// for every key and its default.
	cfg, err := config.Load()
	if err != nil {
		// No logger yet: its level comes from the config.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text in development, JSON everywhere else.
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(logger)

	if !cfg.GitHubEnabled() {
		logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set)")
	}
	if cfg.ContactEmail == "" {
		logger.Warn("CONTACT_EMAIL not set, the contact form will answer 500")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
