package notify

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/ports"
)

const emailSubject = "PRISM crisis card digest"

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email delivers the digest over SMTP.
type Email struct {
	from   string
	to     []string
	sender mailSender
}

var _ ports.Notifier = (*Email)(nil)

// NewEmail builds an SMTP notifier from config.
func NewEmail(cfg config.EmailConfig) *Email {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = 10 * time.Second
	return &Email{from: cfg.From, to: cfg.To, sender: dialer}
}

// PublishDigest sends the digest as a plain-text email to every recipient.
func (e *Email) PublishDigest(ctx context.Context, digest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: %w", ErrMisconfigured)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", emailSubject)
	m.SetBody("text/plain", digest)

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send digest: %w", err)
	}
	return nil
}
