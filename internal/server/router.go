package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vector-core/internal/calculator"
	"vector-core/internal/handlers"
	"vector-core/internal/observability"
)

// NewRouter wires middleware, the health and metrics endpoints and the
// calculator routes. metrics serves /metrics.
func NewRouter(calc *calculator.Handler, metrics http.Handler) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", metrics)

	calculator.RegisterRoutes(r, calc)

	return r
}
