package mailer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"storefront/internal/config"
)

const defaultTimeout = 5 * time.Second

type Message struct {
	To      string
	Subject string
	Body    string
}

type SMTPMailer struct {
	client  *mail.Client
	from    string
	timeout time.Duration
}

// NewSMTPMailer builds a mailer for cfg. STARTTLS is used when the server
// offers it; credentials are only sent when a username is set.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(deadlineDialer(timeout)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client for %s: %w", cfg.Host, err)
	}

	return &SMTPMailer{client: client, from: cfg.From, timeout: timeout}, nil
}

// deadlineDialer caps every read and write on the connection, including the
// server greeting, which go-mail's own timeout does not cover.
func deadlineDialer(timeout time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}

		deadline := time.Now().Add(timeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// Send delivers one plain-text message, giving up after the configured timeout.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail has no recipient")
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("mail subject contains a line break")
	}

	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
