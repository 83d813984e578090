package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/reqlog/config"
	"github.com/upb/reqlog/handlers"
	"github.com/upb/reqlog/logger"
	"github.com/upb/reqlog/middleware"
)

// Dependencies carries what the router needs
type Dependencies struct {
	Logger logger.Logger
	Config *config.Config
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware. The recoverer sits between the logger attachment and
	// the request logger so a handler panic crosses the request logger
	// first and lands in its completion record.
	r.Use(chimw.RealIP)
	r.Use(middleware.Attach(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)

	requestLogger := middleware.NewRequestLogger(deps.Logger, middleware.Options{
		DurationField: deps.Config.Log.DurationField,
	})
	r.Use(requestLogger.Handler)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	timer := middleware.NewTimer(middleware.TimerOptions{})

	// Health check endpoint
	r.Get("/healthz", handlers.HealthCheck())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.Status("reqlog-gateway"))
		r.Get("/work", handlers.Work(timer))
	})

	return r
}
