// Package mailer renders contact-form messages and hands them to an
// outbound mail service (SES API or an SMTP relay).
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/contact-mailer/internal/domain"
)

// ErrDelivery is returned when the mail service rejects or cannot accept a
// message.
var ErrDelivery = errors.New("mail delivery failed")

// Dispatcher sends one envelope and returns the provider's message id.
type Dispatcher interface {
	Send(ctx context.Context, env domain.Envelope) (string, error)
	// Name labels the backend in logs and metrics.
	Name() string
}

func deliveryError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDelivery, err)
}
