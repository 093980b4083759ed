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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/dygy/chartgen/internal/config"
	"github.com/dygy/chartgen/internal/exec"
)

// Config holds server configuration
type Config struct {
	Port     int
	Settings *config.Config // chart defaults for omitted query parameters
	Runner   *exec.Runner
	Logger   *slog.Logger
}

// Server is the HTTP preview server
type Server struct {
	config Config
	router *chi.Mux
	logger *slog.Logger
	jobs   *JobManager
}

// New creates a new server
func New(cfg Config) (*Server, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("server settings: %w", err)
	}
	if cfg.Runner == nil {
		cfg.Runner = exec.NewRunner(cfg.Settings.ExecTools())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		jobs:   NewJobManager(cfg.Runner, logger),
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler)

	r.Get("/health", s.handleHealth)

	// API
	r.Get("/charts/{kind}", s.handleChart)
	r.Post("/charts/{kind}/render", s.handleRender)
	r.Get("/jobs/{id}", s.handleJob)
	r.Get("/jobs/{id}/pdf", s.handleJobPDF)
}

// Run starts the server and blocks until SIGINT or SIGTERM
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // rendering a large enfilade is slow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		s.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", slog.Any("error", err))
		}
		s.jobs.Close()
		close(done)
	}()

	s.logger.Info("server starting", slog.Int("port", s.config.Port))
	fmt.Printf("\n  chartgen preview running at: http://localhost:%d/charts/chords\n\n", s.config.Port)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	<-done
	return nil
}
