package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/mailer"
	"github.com/ignite/contact-mailer/internal/pkg/httputil"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

type sendRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type sendResponse struct {
	Success    bool   `json:"success"`
	MessageID  string `json:"messageId"`
	EndpointID string `json:"endpointId"`
}

func (req *sendRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Subject == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return errors.New("missing required fields: " + strings.Join(missing, ", "))
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return errors.New("invalid email address")
	}
	return nil
}

// HandleSend records a send against the recipient's endpoint, then renders
// and dispatches the tracked message.
//
//	POST /send
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	evt, err := h.svc.NewSendEvent(req.Name, req.Email, req.Subject, req.Message)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	log := logger.Default().With("message_id", evt.MessageID, "endpoint_id", evt.EndpointID)

	ctx, cancel := h.callContext(r.Context())
	defer cancel()

	if _, err := h.svc.RecordSend(ctx, evt); err != nil {
		h.metrics.StoreError(string(domain.EventSend))
		writeEngagementError(w, "Failed to process message", err)
		return
	}
	h.metrics.Event(string(domain.EventSend))

	env, err := h.renderer.Envelope(evt)
	if err != nil {
		httputil.InternalErrorWithDetails(w, "Failed to render message", err)
		return
	}

	providerID, err := h.mail.Send(ctx, env)
	if err != nil {
		h.metrics.MailFailure(h.mail.Name())
		if errors.Is(err, mailer.ErrDelivery) {
			httputil.InternalErrorWithDetails(w, "Failed to send email", err)
			return
		}
		httputil.InternalError(w, "Failed to send email", err)
		return
	}

	log.Info("message sent", "recipient", evt.Email, "backend", h.mail.Name(), "provider_message_id", providerID)
	httputil.OK(w, sendResponse{Success: true, MessageID: evt.MessageID, EndpointID: evt.EndpointID})
}
