// Package router assembles the HTTP surface of the intake agent.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dentalchat/intake-agent/internal/intake"
	"github.com/dentalchat/intake-agent/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	IntakeHandler  *intake.Handler
	MetricsHandler http.Handler

	// EnableDebug exposes the session-count endpoint.
	EnableDebug bool
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", cfg.IntakeHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/chat", func(r chi.Router) {
		r.Post("/start", cfg.IntakeHandler.Start)
		r.Post("/message", cfg.IntakeHandler.Message)
		r.Get("/{sessionID}/summary", cfg.IntakeHandler.Summary)
		if cfg.EnableDebug {
			r.Get("/debug/sessions", cfg.IntakeHandler.Stats)
		}
	})

	return r
}
