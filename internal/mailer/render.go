package mailer

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
)

// DefaultLayout wraps the tracked message body. The message itself is
// inserted as-is; only the name is escaped.
const DefaultLayout = `<html><body><h2>Hello {{ name | escape }},</h2><div>{{ content }}</div>{{ pixel }}</body></html>`

// Renderer turns a send event into a tracked HTML envelope.
type Renderer struct {
	tpl     *liquid.Template
	from    string
	baseURL string
}

// NewRenderer compiles layout (DefaultLayout when empty). Tracking URLs are
// built against baseURL.
func NewRenderer(layout, from, baseURL string) (*Renderer, error) {
	if layout == "" {
		layout = DefaultLayout
	}
	tpl, err := liquid.NewEngine().ParseString(layout)
	if err != nil {
		return nil, fmt.Errorf("parse mail layout: %w", err)
	}
	return &Renderer{tpl: tpl, from: from, baseURL: baseURL}, nil
}

// Render returns the HTML body for evt with every link routed through the
// click tracker and one open pixel after the body.
func (r *Renderer) Render(evt domain.SendEvent) (string, error) {
	out, err := r.tpl.RenderString(map[string]interface{}{
		"name":    evt.Name,
		"email":   evt.Email,
		"subject": evt.Subject,
		"content": engagement.TrackLinks(evt.Message, r.baseURL, evt.MessageID, evt.EndpointID),
		"pixel":   engagement.PixelTag(r.baseURL, evt.MessageID, evt.EndpointID),
	})
	if err != nil {
		return "", fmt.Errorf("render mail layout: %w", err)
	}
	return out, nil
}

// Envelope renders evt and addresses it from the configured sender.
func (r *Renderer) Envelope(evt domain.SendEvent) (domain.Envelope, error) {
	html, err := r.Render(evt)
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{
		From:    r.from,
		To:      evt.Email,
		Subject: evt.Subject,
		HTML:    html,
		Headers: map[string]string{
			domain.HeaderMessageID:  evt.MessageID,
			domain.HeaderEndpointID: evt.EndpointID,
		},
	}, nil
}
