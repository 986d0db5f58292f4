package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/subscription"
)

// ErrCanceledIsTerminal is returned when an update targets a canceled record
// of the same provider subscription.
var ErrCanceledIsTerminal = apperrors.NewConflictError("subscription is canceled; a new subscription is required")

// ErrSupersededSubscription is returned when an event for another provider
// subscription does not supersede the account's current record, such as a
// late update for a subscription the account has since replaced.
var ErrSupersededSubscription = apperrors.NewConflictError("subscription has been superseded by the account's current subscription")

type SubscriptionRepository struct {
	db      *gorm.DB
	breaker *Breaker
}

func NewSubscriptionRepository(db *gorm.DB, breaker *Breaker) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, breaker: breaker}
}

// GetActiveSubscription returns the account's record, or nil when it has none.
func (r *SubscriptionRepository) GetActiveSubscription(ctx context.Context, accountID uint) (*model.SubscriptionRecord, error) {
	var rec model.SubscriptionRecord
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*model.SubscriptionRecord, error) {
	var rec model.SubscriptionRecord
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubID).First(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("subscription not found", stripeSubID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes the account's record. A canceled record is terminal: further
// events for the same provider subscription are rejected. A different provider
// subscription replaces the row only when it supersedes it (see supersedes).
func (r *SubscriptionRepository) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error {
	if !rec.Status.IsValid() {
		return apperrors.NewValidationError("invalid subscription status", string(rec.Status))
	}
	if !rec.Plan.IsValid() {
		return apperrors.NewValidationError("invalid subscription plan", string(rec.Plan))
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	return r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing model.SubscriptionRecord
			err := tx.Where("account_id = ?", rec.AccountID).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rec.ID = 0
				return tx.Omit("Account").Create(rec).Error
			}
			if err != nil {
				return err
			}

			sameSubscription := existing.StripeSubscriptionID == rec.StripeSubscriptionID
			switch {
			case sameSubscription && existing.IsCanceled():
				return ErrCanceledIsTerminal
			case sameSubscription:
				rec.ID = existing.ID
				rec.CreatedAt = existing.CreatedAt
				return tx.Omit("Account").Save(rec).Error
			case !supersedes(rec, &existing):
				return ErrSupersededSubscription
			}

			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			rec.ID = 0
			return tx.Omit("Account").Create(rec).Error
		})
	})
}

// supersedes reports whether rec, from a different provider subscription, may
// replace existing. Only an active subscription whose period ends no earlier
// than the current one does. Rows without a provider id (seeded or local) are
// always replaceable.
func supersedes(rec, existing *model.SubscriptionRecord) bool {
	if existing.StripeSubscriptionID == "" {
		return true
	}
	return rec.Status == subscription.StatusActive && !rec.CurrentPeriodEnd.Before(existing.CurrentPeriodEnd)
}

// MarkPastDue flips an active record to PAST_DUE. Records in any other state
// are left alone.
func (r *SubscriptionRepository) MarkPastDue(ctx context.Context, stripeSubID string) (*model.SubscriptionRecord, error) {
	var rec model.SubscriptionRecord
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("stripe_subscription_id = ?", stripeSubID).First(&rec).Error; err != nil {
				return err
			}
			if rec.Status != subscription.StatusActive {
				return nil
			}
			rec.Status = subscription.StatusPastDue
			return tx.Model(&rec).Update("status", subscription.StatusPastDue).Error
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("subscription not found", stripeSubID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListEndingBetween returns active records whose period ends in [from, to).
func (r *SubscriptionRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.SubscriptionRecord, error) {
	var recs []model.SubscriptionRecord
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Preload("Account").
			Where("status = ? AND current_period_end >= ? AND current_period_end < ?", subscription.StatusActive, from, to).
			Find(&recs).Error
	})
	return recs, err
}
