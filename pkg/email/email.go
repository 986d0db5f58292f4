// pkg/email/email.go
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"apexmind_backend/pkg/config"
	applog "apexmind_backend/pkg/logger"
)

// Transport delivers one rendered HTML message.
type Transport interface {
	Send(to, subject, html string) error
}

type EmailService struct {
	transport Transport
	templates *template.Template
	appURL    string
	logger    *slog.Logger
}

// Template data structures
type WelcomeEmailData struct {
	Name      string
	TrialDays int
	TrialEnd  time.Time
	AppURL    string
}

type TrialReminderData struct {
	Name     string
	DaysLeft int
	LastDay  bool
	TrialEnd time.Time
	PlansURL string
}

type SubscriptionEmailData struct {
	Name      string
	PlanName  string
	Price     float64
	Currency  string
	PeriodEnd time.Time
	IsRenewal bool
}

type SubscriptionCancelledData struct {
	Name        string
	PlanName    string
	AccessUntil time.Time
}

type PaymentFailedData struct {
	Name       string
	PlanName   string
	BillingURL string
}

type SubscriptionExpiryWarningData struct {
	Name       string
	PlanName   string
	DaysLeft   int
	ExpiryDate time.Time
}

func NewEmailService(transport Transport, appURL string) (*EmailService, error) {
	if transport == nil {
		return nil, fmt.Errorf("email transport is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}

	return &EmailService{
		transport: transport,
		templates: templates,
		appURL:    appURL,
		logger:    applog.WithComponent("email"),
	}, nil
}

// NewTransport picks the delivery backend named by cfg.Provider.
func NewTransport(cfg config.EmailConfig) (Transport, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for the smtp provider")
		}
		return NewSMTPTransport(cfg), nil
	case "resend", "":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend API key is required")
		}
		return NewResendTransport(cfg.ResendAPIKey, cfg.From), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	if err := s.transport.Send(to, subject, body.String()); err != nil {
		s.logger.Error("email delivery failed", "to", to, "template", templateName, "error", err)
		return err
	}

	s.logger.Info("email sent", "to", to, "template", templateName)
	return nil
}

func (s *EmailService) SendWelcomeEmail(email, name string, trialDays int, trialEnd time.Time) error {
	data := WelcomeEmailData{
		Name:      name,
		TrialDays: trialDays,
		TrialEnd:  trialEnd,
		AppURL:    s.appURL,
	}
	return s.sendTemplateEmail(email, "Добро пожаловать в ApexMind!", "welcome.html", data)
}

// SendTrialReminderEmail warns that the trial ends soon. daysLeft of 1 uses
// the last-day wording.
func (s *EmailService) SendTrialReminderEmail(email, name string, daysLeft int, trialEnd time.Time) error {
	data := TrialReminderData{
		Name:     name,
		DaysLeft: daysLeft,
		LastDay:  daysLeft <= 1,
		TrialEnd: trialEnd,
		PlansURL: s.appURL + "/subscription",
	}

	subject := fmt.Sprintf("До конца пробного периода осталось %d дн.", daysLeft)
	if data.LastDay {
		subject = "Сегодня последний день пробного периода"
	}
	return s.sendTemplateEmail(email, subject, "trial_reminder.html", data)
}

func (s *EmailService) SendSubscriptionStartedEmail(
	email string,
	name string,
	planName string,
	price float64,
	currency string,
	periodEnd time.Time,
	isRenewal bool,
) error {
	data := SubscriptionEmailData{
		Name:      name,
		PlanName:  planName,
		Price:     price,
		Currency:  currency,
		PeriodEnd: periodEnd,
		IsRenewal: isRenewal,
	}

	subject := "Подписка ApexMind оформлена"
	if isRenewal {
		subject = "Подписка ApexMind продлена"
	}

	return s.sendTemplateEmail(email, subject, "subscription_started.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(email, name, planName string, accessUntil time.Time) error {
	data := SubscriptionCancelledData{
		Name:        name,
		PlanName:    planName,
		AccessUntil: accessUntil,
	}
	return s.sendTemplateEmail(email, "Подписка отменена", "subscription_cancelled.html", data)
}

func (s *EmailService) SendPaymentFailedEmail(email, name, planName string) error {
	data := PaymentFailedData{
		Name:       name,
		PlanName:   planName,
		BillingURL: s.appURL + "/settings/billing",
	}
	return s.sendTemplateEmail(email, "Не удалось списать оплату подписки", "payment_failed.html", data)
}

func (s *EmailService) SendSubscriptionExpiryWarning(
	email, name, planName string,
	expiryDate time.Time,
	daysLeft int,
) error {
	data := SubscriptionExpiryWarningData{
		Name:       name,
		PlanName:   planName,
		DaysLeft:   daysLeft,
		ExpiryDate: expiryDate,
	}
	return s.sendTemplateEmail(
		email,
		fmt.Sprintf("Подписка заканчивается через %d дн.", daysLeft),
		"subscription_expiry_warning.html",
		data,
	)
}
