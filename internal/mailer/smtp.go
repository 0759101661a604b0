package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/contact-mailer/internal/domain"
)

// SMTPConfig configures an SMTPDispatcher.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds the dial; zero means 30s.
	Timeout time.Duration
}

// SMTPDispatcher relays mail through an SMTP server, upgrading with
// STARTTLS when the server offers it.
type SMTPDispatcher struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPDispatcher creates an SMTP dispatcher.
func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPDispatcher{cfg: cfg, now: time.Now}
}

func (d *SMTPDispatcher) Name() string { return "smtp" }

// Send relays env and returns the Message-ID header it was sent with.
func (d *SMTPDispatcher) Send(ctx context.Context, env domain.Envelope) (string, error) {
	from, err := mail.ParseAddress(env.From)
	if err != nil {
		return "", deliveryError("smtp sender", err)
	}
	to, err := mail.ParseAddress(env.To)
	if err != nil {
		return "", deliveryError("smtp recipient", err)
	}

	messageID := fmt.Sprintf("<%s@%s>", messageLocalPart(env), domainOf(from.Address))
	msg, err := buildMessage(env, messageID, d.now())
	if err != nil {
		return "", deliveryError("smtp build", err)
	}

	if err := d.deliver(ctx, from.Address, to.Address, msg); err != nil {
		return "", deliveryError("smtp send", err)
	}
	return messageID, nil
}

func (d *SMTPDispatcher) deliver(ctx context.Context, from, to string, msg []byte) error {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	dialer := &net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
			return err
		}
	}
	if d.cfg.Username != "" && d.cfg.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage renders a single-part HTML message with CRLF line endings.
func buildMessage(env domain.Envelope, messageID string, now time.Time) ([]byte, error) {
	var b strings.Builder
	writeHeader := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	writeHeader("From", env.From)
	writeHeader("To", env.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", env.Subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("Message-ID", messageID)
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `text/html; charset="UTF-8"`)
	writeHeader("Content-Transfer-Encoding", "quoted-printable")

	names := make([]string, 0, len(env.Headers))
	for name := range env.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := env.Headers[name]
		if strings.ContainsAny(name+value, "\r\n") {
			return nil, fmt.Errorf("header %q contains a line break", name)
		}
		writeHeader(name, value)
	}
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&b)
	if _, err := qp.Write([]byte(env.HTML)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func messageLocalPart(env domain.Envelope) string {
	if id := env.Headers[domain.HeaderMessageID]; id != "" {
		return id
	}
	return uuid.NewString()
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}
