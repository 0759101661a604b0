package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ignite/contact-mailer/internal/pkg/httputil"
)

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthChecker reports liveness and probes the configured store and lock
// backends for readiness.
type HealthChecker struct {
	checks    map[string]CheckFunc
	timeout   time.Duration
	startTime time.Time
}

// NewHealthChecker creates a checker with no probes.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:    make(map[string]CheckFunc),
		timeout:   3 * time.Second,
		startTime: time.Now(),
	}
}

// Register adds a readiness probe. Call before serving.
func (hc *HealthChecker) Register(name string, fn CheckFunc) {
	hc.checks[name] = fn
}

// HandleHealth is the liveness probe.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// HandleReadiness runs every probe and returns 503 if any is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	ready := true
	for _, c := range checks {
		if c.Status != "up" {
			ready = false
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"uptime": formatUptime(time.Since(hc.startTime)),
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, len(names))
	for _, name := range names {
		go func(name string, fn CheckFunc) {
			ch <- result{name, hc.probe(ctx, fn)}
		}(name, hc.checks[name])
	}

	checks := make(map[string]ComponentCheck, len(names))
	for range names {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func (hc *HealthChecker) probe(ctx context.Context, fn CheckFunc) ComponentCheck {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	latency := time.Since(start)
	if err != nil {
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: err.Error()}
	}
	return ComponentCheck{Status: "up", Latency: latency.String()}
}

// formatUptime produces a human-readable uptime string like "3d 4h 12m 5s".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
