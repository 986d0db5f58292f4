package model

import (
	"time"

	"gorm.io/datatypes"

	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/subscription"
)

// SubscriptionRecord is the authoritative paid-plan state of an account.
// There is at most one row per account.
type SubscriptionRecord struct {
	ID                   uint                  `json:"id" gorm:"primaryKey"`
	AccountID            uint                  `json:"account_id" gorm:"uniqueIndex;not null"`
	Status               subscription.Status   `json:"status" gorm:"type:varchar(16);not null;default:'NONE'"`
	Plan                 subscription.PlanType `json:"plan" gorm:"type:varchar(32);not null;default:'STARTER'"`
	CurrentPeriodStart   time.Time             `json:"current_period_start"`
	CurrentPeriodEnd     time.Time             `json:"current_period_end"`
	Price                float64               `json:"price"`
	Currency             string                `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	StripeCustomerID     string                `json:"stripe_customer_id" gorm:"index"`
	StripeSubscriptionID string                `json:"stripe_subscription_id" gorm:"index"`
	ProviderData         datatypes.JSON        `json:"-"`
	CanceledAt           *time.Time            `json:"canceled_at"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`

	Account Account `json:"-" gorm:"foreignKey:AccountID"`
}

// Validate checks the billing period bounds.
func (s *SubscriptionRecord) Validate() error {
	if !s.CurrentPeriodEnd.IsZero() && s.CurrentPeriodEnd.Before(s.CurrentPeriodStart) {
		return apperrors.NewInvalidAccountState(
			"subscription period ends before it starts",
			"period_start="+s.CurrentPeriodStart.Format(time.RFC3339)+" period_end="+s.CurrentPeriodEnd.Format(time.RFC3339),
		)
	}
	return nil
}

func (s *SubscriptionRecord) IsCanceled() bool {
	return s.Status == subscription.StatusCanceled
}
