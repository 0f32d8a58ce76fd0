// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates the config, the logger and (optionally) the Redis-backed
// revocation store. New() creates:
//
//	sqlite.DB → UserDB / ChallengeDB / ProgressDB (repositories)
//	          → AuthService, ChallengeService, ProgressService, CommunityService
//	          → AuthHandler, ChallengeHandler, ProgressHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/handler"
	"github.com/sakif/challenge-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/challenge-tracker/internal/repository/sqlite"
	"github.com/sakif/challenge-tracker/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port         int
	DBPath       string         // path to the SQLite database file
	FrontendURL  string         // CORS origin and post-login redirect base
	CookieSecure bool           // mark cookies Secure (HTTPS deployments)
	Location     *time.Location // decides which calendar day is "today"
	JWTSecret    string
	JWTTTL       time.Duration
	Kakao        auth.KakaoConfig
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start() closes it after a
// graceful shutdown; tests that never call Start() call Close().
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// revocations may be nil, in which case logout only clears the cookie and
// tokens lapse at their expiry.
func New(cfg Config, logger *slog.Logger, revocations auth.RevocationStore) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	if revocations == nil {
		revocations = auth.NopRevocationStore{}
	}

	db, err := sqliteRepo.New(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, revocations)

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                               → store ping
// GET    /metrics                               → Prometheus exposition
// GET    /auth/kakao                            → redirect to Kakao consent
// GET    /auth/kakao/callback                   → finish login, set cookie
// GET    /auth/user-details/{kakaoId}           → public profile
// GET    /auth/me                               → own profile      [auth]
// POST   /auth/logout                           → clear + revoke
// GET    /challenges                            → catalogue
// POST   /challenges                            → create
// GET    /challenges/{id}                       → one challenge
// PUT    /challenges/{id}                       → update title/description
// DELETE /challenges/{id}                       → delete
// POST   /challenges/{id}/status                → save own grid    [auth]
// GET    /challenges/{id}/user-status/{userId}  → one user's grid
// GET    /challenges/{id}/community-status      → completion rates
// GET    /challenges/{id}/participants          → participant list
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request ID
// 4. Metrics: Prometheus counters per route pattern
// 5. Recoverer: turns panics into 500s. It sits inside Logger and Metrics
//    so a panicking request is still logged and counted as a 500.
// 6. CORS: lets the frontend origin call the API with credentials
func (s *Server) setupRoutes(tokens *auth.TokenService, revocations auth.RevocationStore) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Operational ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === Services ===
	// Each service receives only the repository interfaces it needs.
	users, challenges, progress := s.db.Users(), s.db.Challenges(), s.db.Progress()

	authService := service.NewAuthService(users, tokens, revocations, s.logger)
	challengeService := service.NewChallengeService(challenges, s.logger)
	progressService := service.NewProgressService(challenges, users, progress, s.config.Location, s.logger)
	communityService := service.NewCommunityService(progress, s.logger)

	// === Handlers ===
	authenticator := auth.NewAuthenticator(tokens, revocations, s.logger)
	authHandler := handler.NewAuthHandler(
		auth.NewKakaoProvider(s.config.Kakao),
		authService,
		handler.AuthCookieConfig{FrontendURL: s.config.FrontendURL, Secure: s.config.CookieSecure},
		s.logger,
	)
	challengeHandler := handler.NewChallengeHandler(challengeService, s.logger)
	progressHandler := handler.NewProgressHandler(progressService, communityService, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/kakao", authHandler.HandleKakaoLogin)
		r.Get("/kakao/callback", authHandler.HandleKakaoCallback)
		r.Get("/user-details/{kakaoId}", authHandler.HandleUserDetails)
		r.With(authenticator.RequireAuth).Get("/me", authHandler.HandleMe)
		r.With(authenticator.OptionalAuth).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/challenges", func(r chi.Router) {
		r.Get("/", challengeHandler.HandleList)
		r.Post("/", challengeHandler.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", challengeHandler.HandleGet)
			r.Put("/", challengeHandler.HandleUpdate)
			r.Delete("/", challengeHandler.HandleDelete)

			r.With(authenticator.RequireAuth).Post("/status", progressHandler.HandleUpdateStatus)
			r.Get("/user-status/{userId}", progressHandler.HandleUserStatus)
			r.Get("/community-status", progressHandler.HandleCommunityStatus)
			r.Get("/participants", progressHandler.HandleParticipants)
		})
	})
}

// handleHealth reports whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start() calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
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
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("frontend", s.config.FrontendURL),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
