// Package main is the entry point for the challenge tracker API server.
//
// The main package is kept minimal. Its job is to:
// 1. Read configuration (environment, optionally seeded from .env)
// 2. Create process-wide dependencies (logger, Redis client)
// 3. Start the server
//
// All actual logic lives in internal/ packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/config"
	"github.com/sakif/challenge-tracker/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("invalid log level", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. TOKEN REVOCATION ===
	// Redis is optional: without it logout only clears the cookie.
	var revocations auth.RevocationStore = auth.NopRevocationStore{}
	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		revocations = auth.NewRedisRevocationStore(client)
		logger.Info("token revocation enabled")
	} else {
		logger.Warn("REDIS_URL not set, logout will not revoke tokens")
	}

	if cfg.Kakao.RestAPIKey == "" {
		logger.Warn("KAKAO_REST_API_KEY not set, Kakao login will fail")
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:         cfg.Port,
		DBPath:       cfg.DBPath,
		FrontendURL:  cfg.FrontendURL,
		CookieSecure: cfg.Cookie.Secure,
		Location:     loc,
		JWTSecret:    cfg.JWT.Secret,
		JWTTTL:       cfg.JWT.TTL,
		Kakao: auth.KakaoConfig{
			ClientID:     cfg.Kakao.RestAPIKey,
			ClientSecret: cfg.Kakao.ClientSecret,
			RedirectURL:  cfg.Kakao.RedirectURI,
			AuthURL:      cfg.Kakao.AuthURL,
			TokenURL:     cfg.Kakao.TokenURL,
			ProfileURL:   cfg.Kakao.ProfileURL,
		},
	}, logger, revocations)
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
