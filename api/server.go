/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP, only
                 when TrustProxy is set. Those headers are client-controlled,
                 so without a trusted proxy in front the rate limiter keys
                 on the connection's RemoteAddr.
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Status and latency per route (when configured)
  6. CORS:       Cross-origin requests for frontend
  7. RateLimit:  Per-client token bucket on /api (when configured)

ROUTE GROUPS:
  /api/users/*      Users, their balances and their leave requests
  /api/leaves/*     Leave requests
  /api/scenarios/*  Demo data (development only)
  /metrics          Prometheus scrape (when configured)
  /healthz          Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Rate limiting and request metrics
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the optional pieces of the middleware stack.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimiter    *RateLimiter
	Metrics        HTTPRecorder
	MetricsHandler http.Handler
	// TrustProxy enables RealIP. Set it only behind a proxy that
	// overwrites X-Forwarded-For and X-Real-IP.
	TrustProxy bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(instrument(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
			r.Post("/{id}/adjustments", h.CreateAdjustment)
			r.Get("/{id}/leaves", h.ListUserLeaves)
			r.Post("/{id}/leaves", h.RequestLeave)
		})

		// Leave request routes
		r.Route("/leaves", func(r chi.Router) {
			r.Get("/", h.ListLeaves)
			r.Get("/{id}", h.GetLeave)
			r.Put("/{id}", h.UpdateLeave)
			r.Delete("/{id}", h.DeleteLeave)
			r.Put("/{id}/status", h.UpdateLeaveStatus)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
