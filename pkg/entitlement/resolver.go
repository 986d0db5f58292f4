// Package entitlement decides which tier of product access applies to an
// account by combining its trial window with its subscription record.
package entitlement

import (
	"context"
	"log/slog"
	"time"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/subscription"
	"apexmind_backend/pkg/trial"
)

// SubscriptionStore returns the account's subscription record or nil.
// Storage failures are reported as apperrors DependencyUnavailable.
type SubscriptionStore interface {
	GetActiveSubscription(ctx context.Context, accountID uint) (*model.SubscriptionRecord, error)
}

type AccountStore interface {
	FindByID(ctx context.Context, accountID uint) (*model.Account, error)
}

type Resolver struct {
	subscriptions SubscriptionStore
	accounts      AccountStore
	policy        trial.Policy
	logger        *slog.Logger
}

func NewResolver(subscriptions SubscriptionStore, accounts AccountStore, policy trial.Policy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		subscriptions: subscriptions,
		accounts:      accounts,
		policy:        policy,
		logger:        logger.With("component", "entitlement"),
	}
}

func (r *Resolver) Policy() trial.Policy {
	return r.policy
}

// ResolveAccess applies the precedence rules: an active paid period wins,
// then a past-due record, then a running trial, else no access. A past-due
// record never falls back to the trial even if the trial window is open.
func (r *Resolver) ResolveAccess(ctx context.Context, accountID uint, now time.Time) (AccessLevel, error) {
	sub, err := r.subscriptions.GetActiveSubscription(ctx, accountID)
	if err != nil {
		return AccessLevel{}, err
	}

	if sub != nil {
		if err := sub.Validate(); err != nil {
			r.logger.Error("invalid subscription record, denying access",
				"account_id", accountID, "subscription_id", sub.ID, "error", err)
			return noAccess(), nil
		}
		switch {
		case sub.Status == subscription.StatusActive && now.Before(sub.CurrentPeriodEnd):
			return paidActive(sub.Plan), nil
		case sub.Status == subscription.StatusPastDue:
			return paidPastDue(sub.Plan), nil
		}
	}

	account, err := r.accounts.FindByID(ctx, accountID)
	if err != nil {
		return AccessLevel{}, err
	}

	state, err := r.policy.Resolve(account.TrialWindow(), now)
	if err != nil {
		if apperrors.IsInvalidAccountState(err) {
			r.logger.Error("invalid trial window, denying access", "account_id", accountID, "error", err)
			return noAccess(), nil
		}
		return AccessLevel{}, err
	}
	if state.IsActive {
		return trialActive(state.DaysRemaining), nil
	}
	return noAccess(), nil
}

// ResolveTrial loads the account and reports its trial state only, without
// consulting the subscription store.
func (r *Resolver) ResolveTrial(ctx context.Context, accountID uint, now time.Time) (*model.Account, trial.State, error) {
	account, err := r.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, trial.State{}, err
	}
	state, err := r.policy.Resolve(account.TrialWindow(), now)
	if err != nil {
		if apperrors.IsInvalidAccountState(err) {
			r.logger.Error("invalid trial window", "account_id", accountID, "error", err)
			return account, trial.State{}, nil
		}
		return nil, trial.State{}, err
	}
	return account, state, nil
}
