package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

// Sender dispatches a rendered email. Implementations must treat a single
// call as terminal; the outbox owns retry policy (currently: none).
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig holds mail relay configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the display sender, e.g. "Bungkii Payment <noreply@bungkii.com>"
	From string
}

// DefaultSMTPConfig returns the Gmail relay defaults the demo was built
// against. Credentials come from config or environment.
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host: "smtp.gmail.com",
		Port: 587,
		From: "Bungkii Payment <noreply@bungkii.com>",
	}
}

// SMTPSender sends mail through a single SMTP relay using PLAIN auth.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates a sender for the given relay configuration.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send delivers one HTML email. The context is accepted for interface
// symmetry; net/smtp has no per-call cancellation, so a hung relay holds
// the calling worker until the transport gives up.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	msg := []byte(
		"From: " + s.config.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
			"\r\n" +
			htmlBody,
	)

	if err := smtp.SendMail(addr, auth, s.config.Username, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
