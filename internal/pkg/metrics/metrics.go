// Package metrics holds the prometheus collectors for the HTTP surface,
// engagement events and the external collaborators.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	eventsTotal         *prometheus.CounterVec
	storeErrorsTotal    *prometheus.CounterVec
	mailFailuresTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engagement_events_total",
				Help: "Engagement events written to the endpoint store",
			},
			[]string{"event"},
		),
		storeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engagement_store_errors_total",
				Help: "Failed read-merge-write cycles against the endpoint store",
			},
			[]string{"event"},
		),
		mailFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mail_send_failures_total",
				Help: "Messages the mail dispatcher failed to hand off",
			},
			[]string{"backend"},
		),
	}
	reg.MustRegister(m.httpRequestsTotal, m.httpRequestDuration, m.eventsTotal, m.storeErrorsTotal, m.mailFailuresTotal)
	return m
}

// Event counts one engagement event that reached the store.
func (m *Metrics) Event(event string) { m.eventsTotal.WithLabelValues(event).Inc() }

// StoreError counts one failed store update for event.
func (m *Metrics) StoreError(event string) { m.storeErrorsTotal.WithLabelValues(event).Inc() }

// MailFailure counts one failed send on backend.
func (m *Metrics) MailFailure(backend string) { m.mailFailuresTotal.WithLabelValues(backend).Inc() }

// Handler serves the exposition format for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument records request count and latency, labelled by the chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		handler := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				handler = p
			}
		}
		m.httpRequestDuration.WithLabelValues(handler, r.Method).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(handler, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
