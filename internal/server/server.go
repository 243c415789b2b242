// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
//	config → sqlite.DB → repositories → services → handlers → chi router
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/innovation-records/internal/auth"
	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/config"
	"github.com/sakif/innovation-records/internal/handler"
	"github.com/sakif/innovation-records/internal/middleware"
	sqliteRepo "github.com/sakif/innovation-records/internal/repository/sqlite"
	"github.com/sakif/innovation-records/internal/service"
)

// purgeInterval is how often expired sessions are deleted when a session
// TTL is configured.
const purgeInterval = time.Hour

// Server owns the database connection and the router.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *service.SessionService
}

// Option customises New.
type Option func(*options)

type options struct {
	verifier auth.Verifier
}

// WithVerifier replaces the Google tokeninfo verifier. Tests use it to sign
// in without network access.
func WithVerifier(v auth.Verifier) Option {
	return func(o *options) { o.verifier = v }
}

// New opens the database at cfg.DB.Path, applies migrations and wires
// every route.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.verifier == nil {
		o.verifier = auth.NewGoogleVerifier(cfg.Auth.GoogleClientID, cfg.Auth.VerifyTimeout)
	}

	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(o); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes(o options) error {
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	users := s.db.Users()
	staffRepo := s.db.Staff()
	innovations := s.db.Innovations()
	teams := s.db.Teams()
	comps := s.db.Competitions()

	s.sessions = service.NewSessionService(s.db.Sessions(), s.cfg.Auth.SessionTTL, s.logger)
	staffSvc := service.NewStaffService(staffRepo, users, enforcer, s.logger)
	authSvc := service.NewAuthService(o.verifier, staffSvc, users, s.sessions,
		s.cfg.Auth.AllowedDomain, s.cfg.Auth.AdminEmails, s.logger)
	innovationSvc := service.NewInnovationService(innovations, teams, staffRepo, enforcer, s.logger)
	teamSvc := service.NewTeamService(innovations, teams, staffRepo, enforcer, s.logger)
	compSvc := service.NewCompetitionService(innovations, teams, comps, enforcer, s.logger)
	dashboardSvc := service.NewDashboardService(innovationSvc, comps)

	var (
		google *auth.GoogleProvider
		states *auth.StateService
	)
	if s.cfg.Auth.CodeFlowEnabled() {
		google = auth.NewGoogleProvider(s.cfg.Auth.GoogleClientID, s.cfg.Auth.GoogleClientSecret,
			s.cfg.Auth.GoogleCallbackURL, s.cfg.Auth.AllowedDomain)
		if states, err = auth.NewStateService(s.cfg.Auth.StateSecret); err != nil {
			return err
		}
	} else {
		s.logger.Info("google code flow not configured; only credential login is available")
	}

	authHandler := handler.NewAuthHandler(authSvc, google, states, s.cfg.Auth.CookieSecure, s.cfg.Auth.SessionTTL, s.logger)
	innovationHandler := handler.NewInnovationHandler(innovationSvc, s.logger)
	teamHandler := handler.NewTeamHandler(teamSvc, s.logger)
	compHandler := handler.NewCompetitionHandler(compSvc, s.logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, s.logger)
	staffHandler := handler.NewStaffHandler(staffSvc, s.logger)

	limiter := middleware.NewRateLimiter(s.cfg.Auth.LoginRate, s.cfg.Auth.LoginBurst, s.logger)
	requireSession := auth.RequireSession(s.sessions, s.logger)

	s.router.Use(chimiddleware.RequestID)
	if s.cfg.HTTP.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/google/login", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		})
		r.With(requireSession).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/dashboard", dashboardHandler.HandleStats)

		r.Route("/innovations", func(r chi.Router) {
			r.Get("/", innovationHandler.HandleList)
			r.Post("/", innovationHandler.HandleCreate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", innovationHandler.HandleGet)
				r.Put("/", innovationHandler.HandleUpdate)
				r.Delete("/", innovationHandler.HandleDelete)

				r.Get("/team", teamHandler.HandleList)
				r.Post("/team", teamHandler.HandleAdd)
				r.Delete("/team/entries/{entryID}", teamHandler.HandleRemoveEntry)
				r.Delete("/team/{email}", teamHandler.HandleRemove)

				r.Get("/competitions", compHandler.HandleList)
				r.Post("/competitions", compHandler.HandleAdd)
				r.Delete("/competitions/{compID}", compHandler.HandleDelete)
			})
		})

		r.Get("/staff", staffHandler.HandleSearch)
		r.Get("/staff/lookup", staffHandler.HandleLookup)
		r.Post("/staff", staffHandler.HandleUpsert)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.cfg.Auth.SessionTTL > 0 {
		go s.purgeSessions(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.HTTP.Port),
			slog.String("database", s.cfg.DB.Path),
			slog.String("allowed_domain", s.cfg.Auth.AllowedDomain),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeOnce(ctx)
		}
	}
}

// purgeOnce runs one purge. SessionService logs the count.
func (s *Server) purgeOnce(ctx context.Context) {
	if _, err := s.sessions.PurgeExpired(ctx); err != nil {
		s.logger.Error("purging expired sessions", slog.String("error", err.Error()))
	}
}
