// Package server exposes the funnel operations over HTTP for the frontend.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/funnel"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/sessionlog"
)

const maxBodyBytes = 1 << 20

// Server wires funnel operations and interaction logging to HTTP routes.
type Server struct {
	svc            *funnel.Service
	logs           *sessionlog.Logger
	allowedOrigins []string
}

// New creates a Server. allowedOrigins feeds CORS; empty allows any origin.
func New(svc *funnel.Service, logs *sessionlog.Logger, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if logs == nil {
		logs = sessionlog.New(nil, nil)
	}
	return &Server{svc: svc, logs: logs, allowedOrigins: allowedOrigins}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", correlation.HeaderName},
		ExposedHeaders: []string{correlation.HeaderName},
		MaxAge:         300,
	}))
	r.Use(correlationMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		for _, op := range funnel.Operations {
			r.Post("/"+op, s.handleOperation(op))
		}
		r.Post("/log-interaction", s.handleLogInteraction)
	})
	return r
}
