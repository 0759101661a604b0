package api

import (
	"net/http"
	"strings"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
	"github.com/ignite/contact-mailer/internal/pkg/httputil"
)

type analyticsResponse struct {
	Email       string            `json:"email,omitempty"`
	Metrics     domain.Metrics    `json:"metrics"`
	Attributes  domain.Attributes `json:"attributes"`
	LastUpdated string            `json:"lastUpdated,omitempty"`
}

// HandleAnalytics returns the endpoint record for an address. An address
// that was never written yields empty metrics and attributes.
//
//	GET /analytics?email=
func (h *Handlers) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		httputil.BadRequest(w, "Email parameter is required")
		return
	}

	ctx, cancel := h.callContext(r.Context())
	defer cancel()

	rec, err := h.svc.Lookup(ctx, email)
	if err != nil {
		writeEngagementError(w, "Failed to fetch analytics", err)
		return
	}

	resp := analyticsResponse{Metrics: domain.Metrics{}, Attributes: domain.Attributes{}}
	if rec != nil {
		resp.Email = rec.Address
		resp.Metrics = rec.Metrics.Clone()
		resp.Attributes = rec.Attributes.Clone()
		if !rec.LastUpdated.IsZero() {
			resp.LastUpdated = engagement.FormatTimestamp(rec.LastUpdated)
		}
	}
	httputil.OK(w, resp)
}
