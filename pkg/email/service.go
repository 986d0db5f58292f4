// pkg/email/service.go
package email

import "time"

// Sender is the set of messages the application sends.
type Sender interface {
	SendWelcomeEmail(email, name string, trialDays int, trialEnd time.Time) error
	SendTrialReminderEmail(email, name string, daysLeft int, trialEnd time.Time) error
	SendSubscriptionStartedEmail(email, name, planName string, price float64, currency string, periodEnd time.Time, isRenewal bool) error
	SendSubscriptionCancelledEmail(email, name, planName string, accessUntil time.Time) error
	SendPaymentFailedEmail(email, name, planName string) error
	SendSubscriptionExpiryWarning(email, name, planName string, expiryDate time.Time, daysLeft int) error
}

var GlobalEmailService Sender

func InitEmailService(transport Transport, appURL string) error {
	service, err := NewEmailService(transport, appURL)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
