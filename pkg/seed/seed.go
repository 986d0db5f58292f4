package seed

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/subscription"
	"apexmind_backend/pkg/trial"
)

const (
	DemoEmail    = "demo@apexmind.ai"
	DemoPassword = "demo12345"
)

type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error
}

type SubscriptionStore interface {
	GetActiveSubscription(ctx context.Context, accountID uint) (*model.SubscriptionRecord, error)
	Upsert(ctx context.Context, rec *model.SubscriptionRecord) error
}

// SeedDemoAccount creates the demo workspace with an active Business Pro
// subscription for 30 days. Running it again is a no-op.
func SeedDemoAccount(ctx context.Context, accounts AccountStore, subs SubscriptionStore, policy trial.Policy, clk clock.Clock) error {
	now := clk.Now()

	account, err := accounts.FindByEmail(ctx, DemoEmail)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}

	if account == nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		window := policy.NewWindow(now)
		account = &model.Account{
			Email:          DemoEmail,
			Password:       string(hashed),
			Name:           "Демо пользователь",
			Company:        "ApexMind Demo",
			Slug:           "apexmind-demo",
			Industry:       "consulting",
			TrialStartDate: window.Start,
			TrialEndDate:   window.End,
		}
		if err := accounts.Create(ctx, account); err != nil {
			return err
		}
		logger.Info("demo account created", "account_id", account.ID)
	}

	existing, err := subs.GetActiveSubscription(ctx, account.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	plan, _ := subscription.GetPlan(subscription.BusinessProPlan)
	err = subs.Upsert(ctx, &model.SubscriptionRecord{
		AccountID:          account.ID,
		Status:             subscription.StatusActive,
		Plan:               subscription.BusinessProPlan,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(30 * trial.Day),
		Price:              plan.Price,
		Currency:           plan.Currency,
	})
	if err != nil {
		return err
	}

	logger.Info("demo subscription seeded", "account_id", account.ID, "plan", subscription.BusinessProPlan)
	return nil
}
