package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/firewatch/internal/api/incidents"
	"github.com/good-yellow-bee/firewatch/internal/api/intake"
	"github.com/good-yellow-bee/firewatch/internal/api/middleware"
	"github.com/good-yellow-bee/firewatch/internal/api/respond"
	"github.com/good-yellow-bee/firewatch/internal/clock"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	intakeHandler := intake.NewHandler(
		s.storage,
		s.analyzer,
		s.dispatcher,
		s.settings,
		clock.Real{},
		s.config.Verbose,
	)
	queryHandler := incidents.NewHandler(s.storage, s.config.QueryTimeout)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))

		r.Post("/collect", intakeHandler.Collect)

		r.Get("/incidents", queryHandler.List)
		r.Get("/incidents/{id}", queryHandler.Get)
		r.Get("/stats/daily", queryHandler.DailyStats)
	})

	// Health check (public, no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.storage.Ping(r.Context()); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		respond.OK(w, map[string]string{"status": "ok"})
	})

	return r
}
