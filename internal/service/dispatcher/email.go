package dispatcher

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/notify-api/internal/model"
)

// smtpSender delivers email through the provider's stored SMTP
// credentials.
type smtpSender struct{}

func NewSMTPSender() EmailSender {
	return &smtpSender{}
}

// Send dials and sends in a goroutine so the transport stays bounded by
// the caller's context; gomail itself has no deadline support.
func (s *smtpSender) Send(ctx context.Context, cfg *model.EmailProviderConfig, email *Email) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.PlainText)
	if email.RichText != "" {
		m.AddAlternative("text/html", email.RichText)
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	errCh := make(chan error, 1)
	go func() {
		errCh <- dialer.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
