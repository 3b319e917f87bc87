package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/changheecho2/banju/internal/config"
)

// TemplateHeader names the message header that carries the template ID.
// Senders that index messages (see RedisSender) read it back.
const TemplateHeader = "X-Banju-Template"

// Sender delivers a fully formatted message (headers and body).
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates an SMTP sender, or a LoggingSender when no SMTP host
// is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{}
	}
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		log.Printf("ERROR: failed to send email via SMTP to %v: %v", to, err)
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("Email sent via SMTP to %v (Subject: %s)", to, subject)
	return nil
}

// LoggingSender only logs messages. Used in development.
type LoggingSender struct{}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	log.Printf("--- Email (logged) to %v: %s ---\n%s\n--- End Email ---", to, subject, rawMessage)
	return nil
}
