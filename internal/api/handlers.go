// Package api exposes the contact form, the open/click trackers and the
// analytics lookup over HTTP.
package api

import (
	"context"
	"time"

	"github.com/ignite/contact-mailer/internal/engagement"
	"github.com/ignite/contact-mailer/internal/mailer"
	"github.com/ignite/contact-mailer/internal/pkg/metrics"
)

// Handlers holds the collaborators every route needs. They are built once
// at start-up and shared by all requests.
type Handlers struct {
	svc             *engagement.Service
	renderer        *mailer.Renderer
	mail            mailer.Dispatcher
	metrics         *metrics.Metrics
	callTimeout     time.Duration
	redirectOnError bool
}

// Deps configures NewHandlers.
type Deps struct {
	Service  *engagement.Service
	Renderer *mailer.Renderer
	Mail     mailer.Dispatcher
	Metrics  *metrics.Metrics
	// CallTimeout bounds each store or mail call; zero leaves it to the
	// request context.
	CallTimeout time.Duration
	// RedirectOnError still redirects a click when recording it failed.
	RedirectOnError bool
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		svc:             d.Service,
		renderer:        d.Renderer,
		mail:            d.Mail,
		metrics:         d.Metrics,
		callTimeout:     d.CallTimeout,
		redirectOnError: d.RedirectOnError,
	}
}

func (h *Handlers) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.callTimeout)
}
