// Package server sets up the HTTP server, router, and all route
// definitions.
//
// This package is the composition root — every dependency is wired here,
// in one place:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete DB), handlers get services (not
// repositories). main.go stays minimal — load config, call New, Start.
package server

import (
	"context"
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
	"github.com/go-chi/httprate"

	"github.com/phm-oh/chatqa-backend/internal/auth"
	"github.com/phm-oh/chatqa-backend/internal/config"
	"github.com/phm-oh/chatqa-backend/internal/handler"
	"github.com/phm-oh/chatqa-backend/internal/middleware"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/notify"
	sqliteRepo "github.com/phm-oh/chatqa-backend/internal/repository/sqlite"
	"github.com/phm-oh/chatqa-backend/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph and returns a ready Server.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
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

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /api/health                     → liveness probe
//	POST   /api/questions                  → submit a question (public, strict rate limit)
//	GET    /api/faq...                     → public FAQ reads
//	POST   /api/admin/login                → login (strict rate limit)
//	(everything else under /api/admin and /api/questions requires auth)
//
// MIDDLEWARE ORDER MATTERS: RequestID and RealIP run first so the rate
// limiter and the logger see the real client IP; Recoverer wraps the
// rest so a panic becomes a 500 instead of a crash.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	admins := s.db.Admins()
	questions := s.db.Questions()

	mailCfg := notify.Config{AdminEmail: s.config.AdminEmail}
	if s.config.EmailEnabled {
		mailCfg.Host = s.config.SMTPHost
		mailCfg.Port = s.config.SMTPPort
		mailCfg.Username = s.config.SMTPUser
		mailCfg.Password = s.config.SMTPPass
	}
	mailer, err := notify.NewMailer(mailCfg, s.logger)
	if err != nil {
		return fmt.Errorf("creating mailer: %w", err)
	}

	authService := service.NewAuthService(admins, tokens, passwords, s.logger)
	questionService := service.NewQuestionService(questions, mailer, s.logger)

	secureCookie := s.config.Env == "production"
	adminHandler := handler.NewAdminHandler(authService, s.config.TokenTTL, secureCookie, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, s.logger)
	faqHandler := handler.NewFAQHandler(questionService, s.logger)

	gate := auth.NewMiddleware(tokens, admins, s.logger)

	// Global middleware
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true, // the token travels in a cookie for browser clients
		MaxAge:           300,
	}))
	s.router.Use(httprate.LimitByIP(s.config.RateLimitRequests, s.config.RateLimitWindow))

	// Brute-force protection for the two public write endpoints. This is
	// the outer, per-IP layer; the per-account lockout lives in the
	// service and survives IP rotation.
	strictLimit := httprate.LimitByIP(s.config.LoginRateLimitRequests, s.config.LoginRateLimitWindow)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Public FAQ reads
		r.Route("/faq", func(r chi.Router) {
			r.Get("/", faqHandler.HandleList)
			r.Get("/categories", faqHandler.HandleCategories)
			r.Get("/popular", faqHandler.HandlePopular)
			r.Get("/search", faqHandler.HandleSearch)
			r.Get("/{id}", faqHandler.HandleGet)
		})

		// Question intake (public POST) and triage (authenticated rest)
		r.Route("/questions", func(r chi.Router) {
			r.With(strictLimit).Post("/", questionHandler.HandleSubmit)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAuth)
				r.Get("/", questionHandler.HandleList)
				r.Get("/stats", questionHandler.HandleStats)
				r.Get("/{id}", questionHandler.HandleGet)
				r.Put("/{id}", questionHandler.HandleUpdate)
				r.With(gate.RequireRole(model.RoleSuperAdmin)).
					Delete("/{id}", questionHandler.HandleDelete)
			})
		})

		// Staff accounts
		r.Route("/admin", func(r chi.Router) {
			r.With(strictLimit).Post("/login", adminHandler.HandleLogin)
			r.Post("/logout", adminHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAuth)
				r.Get("/me", adminHandler.HandleMe)
				r.Put("/profile", adminHandler.HandleUpdateProfile)
				r.Put("/change-password", adminHandler.HandleChangePassword)

				r.Group(func(r chi.Router) {
					r.Use(gate.RequireRole(model.RoleSuperAdmin))
					r.Get("/list", adminHandler.HandleList)
					r.Post("/register", adminHandler.HandleRegister)
					r.Get("/stats", adminHandler.HandleStats)
					r.Patch("/{id}/toggle-status", adminHandler.HandleToggleStatus)
				})
			})
		})
	})

	return nil
}

// handleHealth is the liveness probe. It also pings the database so a
// wedged SQLite file shows up here instead of on the first real request.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","env":%q}`, s.config.Env)
}

// writeJSONError mirrors the handler package's error shape for responses
// generated at the routing layer (404s, health failures).
func writeJSONError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"message":%q}`, errType, message)
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s
// cap), close the database so the WAL is flushed.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
