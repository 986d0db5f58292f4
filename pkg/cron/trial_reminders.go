package cron

import (
	"context"
	"log/slog"
	"time"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/entitlement"
	"apexmind_backend/pkg/trial"
)

type ReminderAccounts interface {
	ListTrialReminderCandidates(ctx context.Context, now time.Time) ([]model.Account, error)
	MarkTrialNotified(ctx context.Context, accountID uint, notice entitlement.Notice) (bool, error)
}

type AccessResolver interface {
	ResolveAccess(ctx context.Context, accountID uint, now time.Time) (entitlement.AccessLevel, error)
}

type TrialReminderMailer interface {
	SendTrialReminderEmail(email, name string, daysLeft int, trialEnd time.Time) error
}

// TrialReminderJob sends the three-days-left and last-day trial reminders.
// Each reminder is claimed with a conditional flag update before it is
// sent, so concurrent runs deliver it at most once.
type TrialReminderJob struct {
	accounts ReminderAccounts
	resolver AccessResolver
	policy   trial.Policy
	mailer   TrialReminderMailer
	clock    clock.Clock
	logger   *slog.Logger
}

func NewTrialReminderJob(
	accounts ReminderAccounts,
	resolver AccessResolver,
	policy trial.Policy,
	mailer TrialReminderMailer,
	clk clock.Clock,
	logger *slog.Logger,
) *TrialReminderJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrialReminderJob{
		accounts: accounts,
		resolver: resolver,
		policy:   policy,
		mailer:   mailer,
		clock:    clk,
		logger:   logger.With("job", "trial_reminders"),
	}
}

func (j *TrialReminderJob) Name() string { return "trial_reminders" }

func (j *TrialReminderJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	candidates, err := j.accounts.ListTrialReminderCandidates(ctx, now)
	if err != nil {
		return err
	}

	sent := 0
	for i := range candidates {
		account := &candidates[i]
		ok, err := j.remind(ctx, account, now)
		if err != nil {
			if apperrors.IsDependencyUnavailable(err) {
				return err
			}
			j.logger.Error("trial reminder failed", "account_id", account.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}

	j.logger.Info("trial reminders processed", "candidates", len(candidates), "sent", sent)
	return nil
}

func (j *TrialReminderJob) remind(ctx context.Context, account *model.Account, now time.Time) (bool, error) {
	level, err := j.resolver.ResolveAccess(ctx, account.ID, now)
	if err != nil {
		return false, err
	}
	// paying customers are not nagged about a trial
	if level.Kind != entitlement.TrialActive {
		return false, nil
	}

	state, err := j.policy.Resolve(account.TrialWindow(), now)
	if err != nil {
		return false, err
	}

	due := entitlement.DueNotifications(account, state)
	if len(due) == 0 {
		return false, nil
	}

	// Both reminders can fall due in one run when a run was missed; only the
	// last-day one is sent, the other is claimed so it never goes out late.
	var send entitlement.Notice
	for _, notice := range due {
		won, err := j.accounts.MarkTrialNotified(ctx, account.ID, notice)
		if err != nil {
			return false, err
		}
		if won {
			send = notice
		}
	}
	if send == "" {
		return false, nil
	}

	daysLeft := state.DaysRemaining
	if send == entitlement.LastDay {
		daysLeft = 1
	}
	if err := j.mailer.SendTrialReminderEmail(account.Email, account.Name, daysLeft, account.TrialEndDate); err != nil {
		return false, err
	}

	j.logger.Info("trial reminder sent", "account_id", account.ID, "notice", send, "days_remaining", state.DaysRemaining)
	return true, nil
}
