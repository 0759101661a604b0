package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ignite/contact-mailer/internal/api"
	"github.com/ignite/contact-mailer/internal/config"
	"github.com/ignite/contact-mailer/internal/engagement"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
	"github.com/ignite/contact-mailer/internal/pkg/metrics"
)

// ConfigureLogger applies the log level and redaction settings.
func ConfigureLogger(c config.LogConfig) error {
	level, err := logger.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetRedactPII(!c.DisableRedaction)
	return nil
}

// NewMetrics registers the service collectors next to the Go runtime and
// process collectors.
func NewMetrics() *metrics.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return metrics.New(reg)
}

// NewService builds the engagement service over the wired store. Updates
// are serialized only when a lock factory was wired.
func (d *Dependencies) NewService(cfg *config.Config) *engagement.Service {
	var opts []engagement.Option
	if d.Locks != nil {
		opts = append(opts, engagement.WithLocker(d.Locks, cfg.Engagement.LockWait()))
		logger.Warn("serialized endpoint updates enabled", "lock_wait", cfg.Engagement.LockWait().String())
	}
	return engagement.NewService(d.Repo, opts...)
}

// NewHealthChecker registers a readiness probe per wired connection.
func (d *Dependencies) NewHealthChecker() *api.HealthChecker {
	hc := api.NewHealthChecker()
	for name, check := range d.Checks {
		hc.Register(name, check)
	}
	return hc
}
