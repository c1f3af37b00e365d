package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	gomail "gopkg.in/gomail.v2"
)

// SMTPMailer delivers account emails over SMTP. Links point at the
// configured frontend, which owns the actual verification and reset pages.
type SMTPMailer struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
	logger      Logger
}

// NewSMTPMailer creates a mailer for the given SMTP server.
func NewSMTPMailer(cfg SMTPConfig, frontendURL string) *SMTPMailer {
	return &SMTPMailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:        cfg.From,
		frontendURL: frontendURL,
		logger:      defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"<p>Welcome!</p><p>Please confirm your email address by following <a href=%q>this link</a>.</p><p>The link is valid for 24 hours.</p>",
		link,
	)
	return m.send(ctx, to, "Confirm your email address", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"<p>We received a request to reset your password.</p><p>Follow <a href=%q>this link</a> to choose a new one. The link is valid for 1 hour.</p><p>If you did not request a reset you can ignore this email.</p>",
		link,
	)
	return m.send(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled before email send")
	default:
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "smtp delivery failed").
			WithMetadata(map[string]any{"to": to, "subject": subject})
	}

	m.logger.Info("sent %q to %s", subject, to)
	return nil
}

// LogMailer writes the links to the log instead of sending email. Meant for
// development and tests.
type LogMailer struct {
	FrontendURL string
	Logger      Logger
}

func (m LogMailer) logger() Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return defLogger{}
}

func (m LogMailer) SendVerification(_ context.Context, to, token string) error {
	m.logger().Info("verification link for %s: %s/verify-email?token=%s", to, m.FrontendURL, token)
	return nil
}

func (m LogMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.logger().Info("password reset link for %s: %s/reset-password?token=%s", to, m.FrontendURL, token)
	return nil
}
