package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"apexmind_backend/pkg/config"
)

// SMTPTransport delivers through a plain SMTP relay.
type SMTPTransport struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (t *SMTPTransport) Send(to, subject, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
