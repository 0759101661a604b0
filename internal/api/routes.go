package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/contact-mailer/internal/pkg/metrics"
)

// SetupRoutes configures every route the service serves.
func SetupRoutes(h *Handlers, hc *HealthChecker, m *metrics.Metrics, allowedOrigins []string) *chi.Mux {
	r := newRouter(hc, m, allowedOrigins)
	r.Post("/send", h.HandleSend)
	r.Get("/analytics", h.HandleAnalytics)
	mountTracking(r, h)
	return r
}

// SetupTrackingRoutes configures only the open and click trackers, for a
// deployment that serves tracking links without mail credentials.
func SetupTrackingRoutes(h *Handlers, hc *HealthChecker, m *metrics.Metrics) *chi.Mux {
	r := newRouter(hc, m, nil)
	mountTracking(r, h)
	return r
}

func newRouter(hc *HealthChecker, m *metrics.Metrics, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Instrument)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", hc.HandleHealth)
	r.Get("/health/ready", hc.HandleReadiness)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

func mountTracking(r chi.Router, h *Handlers) {
	r.Route("/track", func(r chi.Router) {
		r.Get("/open/{messageId}/{endpointId}", h.HandleOpen)
		r.Get("/click/{messageId}/{endpointId}", h.HandleClick)
	})
}
