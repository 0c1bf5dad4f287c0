// Package server wires configuration, storage, services, and routes into a
// runnable HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/config"
	"github.com/sakif/auth-backend/internal/handler"
	"github.com/sakif/auth-backend/internal/middleware"
	"github.com/sakif/auth-backend/internal/oauth"
	"github.com/sakif/auth-backend/internal/repository/sqlite"
	"github.com/sakif/auth-backend/internal/service"
)

type Server struct {
	httpServer *http.Server
	db         *sqlite.DB
	logger     *slog.Logger
}

func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("server: %w", err)
	}
	passwords := auth.NewPasswordService()

	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret)
	github := oauth.NewGitHub(cfg.GitHubClientID, cfg.GitHubClientSecret)

	authSvc := service.NewAuthService(db.Users(), db.SocialAccounts(), tokens, passwords, logger)
	locationSvc := service.NewLocationService(db.Locations(), logger)

	authHandler := handler.NewAuthHandler(authSvc, google, github, logger)
	locationHandler := handler.NewLocationHandler(locationSvc, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/google", authHandler.HandleGoogleLogin)
		r.Post("/github", authHandler.HandleGitHubLogin)
		r.Post("/token/refresh", authHandler.HandleRefresh)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", authHandler.HandleMe)
		r.Get("/users", authHandler.HandleListUsers)
		r.Route("/gpslocations", func(r chi.Router) {
			r.Get("/", locationHandler.HandleList)
			r.Post("/", locationHandler.HandleCreate)
			r.Get("/{id}", locationHandler.HandleGet)
			r.Put("/{id}", locationHandler.HandleUpdate)
			r.Delete("/{id}", locationHandler.HandleDelete)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		db:     db,
		logger: logger,
	}, nil
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.db.Close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if closeErr := s.db.Close(); err == nil {
		err = closeErr
	}
	return err
}
