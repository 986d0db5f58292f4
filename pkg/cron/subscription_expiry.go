package cron

import (
	"context"
	"log/slog"
	"time"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/subscription"
)

var warningDays = []int{7, 3}

type ExpiringSubscriptions interface {
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.SubscriptionRecord, error)
}

type ExpiryMailer interface {
	SendSubscriptionExpiryWarning(email, name, planName string, expiryDate time.Time, daysLeft int) error
}

// RenewalReminderJob warns active subscribers whose period ends in 7 or 3 days.
type RenewalReminderJob struct {
	subscriptions ExpiringSubscriptions
	mailer        ExpiryMailer
	clock         clock.Clock
	logger        *slog.Logger
}

func NewRenewalReminderJob(subs ExpiringSubscriptions, mailer ExpiryMailer, clk clock.Clock, logger *slog.Logger) *RenewalReminderJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalReminderJob{
		subscriptions: subs,
		mailer:        mailer,
		clock:         clk,
		logger:        logger.With("job", "renewal_reminders"),
	}
}

func (j *RenewalReminderJob) Name() string { return "renewal_reminders" }

func (j *RenewalReminderJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, days := range warningDays {
		from := today.AddDate(0, 0, days)
		subs, err := j.subscriptions.ListEndingBetween(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			return err
		}

		j.logger.Info("found expiring subscriptions", "count", len(subs), "days", days)

		for _, sub := range subs {
			planName := string(sub.Plan)
			if p, ok := subscription.GetPlan(sub.Plan); ok {
				planName = p.Name
			}
			err := j.mailer.SendSubscriptionExpiryWarning(sub.Account.Email, sub.Account.Name, planName, sub.CurrentPeriodEnd, days)
			if err != nil {
				j.logger.Error("could not send expiry warning", "account_id", sub.AccountID, "error", err)
			}
		}
	}
	return nil
}
