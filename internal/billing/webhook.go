// Package billing applies Stripe subscription events to subscription records.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"apexmind_backend/internal/model"
	"apexmind_backend/internal/repository"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/email"
	"apexmind_backend/pkg/subscription"
)

const (
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// MetadataAccountID is the checkout metadata key that links a Stripe
// subscription to an account.
const MetadataAccountID = "account_id"

type SubscriptionStore interface {
	Upsert(ctx context.Context, rec *model.SubscriptionRecord) error
	FindByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*model.SubscriptionRecord, error)
	MarkPastDue(ctx context.Context, stripeSubID string) (*model.SubscriptionRecord, error)
}

type AccountStore interface {
	FindByID(ctx context.Context, accountID uint) (*model.Account, error)
}

type stripeSubscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CanceledAt         int64             `json:"canceled_at"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type stripeInvoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

type Processor struct {
	subscriptions SubscriptionStore
	accounts      AccountStore
	catalog       *subscription.PriceCatalog
	mailer        email.Sender
	clock         clock.Clock
	logger        *slog.Logger
}

func NewProcessor(
	subscriptions SubscriptionStore,
	accounts AccountStore,
	catalog *subscription.PriceCatalog,
	mailer email.Sender,
	clk clock.Clock,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Processor{
		subscriptions: subscriptions,
		accounts:      accounts,
		catalog:       catalog,
		mailer:        mailer,
		clock:         clk,
		logger:        logger.With("component", "billing"),
	}
}

// Handle applies one verified event. Unknown event types are ignored.
// Returned errors are DependencyUnavailable or validation failures; the
// caller should answer non-2xx so Stripe retries.
func (p *Processor) Handle(ctx context.Context, eventType string, raw json.RawMessage) error {
	switch eventType {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return p.handleSubscriptionChange(ctx, eventType, raw)
	case EventSubscriptionDeleted:
		return p.handleSubscriptionDeleted(ctx, raw)
	case EventInvoicePaymentFailed:
		return p.handlePaymentFailed(ctx, raw)
	default:
		p.logger.Debug("ignoring stripe event", "type", eventType)
		return nil
	}
}

func (p *Processor) handleSubscriptionChange(ctx context.Context, eventType string, raw json.RawMessage) error {
	var payload stripeSubscriptionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apperrors.NewValidationError("invalid subscription payload", err.Error())
	}

	existing, err := p.subscriptions.FindByStripeSubscriptionID(ctx, payload.ID)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}

	accountID, ok := accountIDFrom(payload.Metadata)
	if !ok && existing != nil {
		accountID, ok = existing.AccountID, true
	}
	if !ok {
		p.logger.Warn("subscription event without account reference", "type", eventType, "subscription", payload.ID)
		return nil
	}

	status := subscription.FromStripeStatus(payload.Status)
	if status == subscription.StatusNone {
		// incomplete checkouts never become records
		p.logger.Info("skipping subscription in non-billable state",
			"subscription", payload.ID, "stripe_status", payload.Status)
		return nil
	}

	rec := p.recordFrom(accountID, status, &payload, raw)
	if err := p.subscriptions.Upsert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrCanceledIsTerminal) {
			p.logger.Warn("ignoring event for canceled subscription", "type", eventType, "subscription", payload.ID)
			return nil
		}
		if errors.Is(err, repository.ErrSupersededSubscription) {
			p.logger.Warn("ignoring event for superseded subscription",
				"type", eventType, "account_id", accountID, "subscription", payload.ID, "stripe_status", payload.Status)
			return nil
		}
		return err
	}

	p.logger.Info("subscription record updated",
		"account_id", accountID,
		"subscription", payload.ID,
		"status", rec.Status,
		"plan", rec.Plan,
		"period_end", rec.CurrentPeriodEnd,
	)

	if rec.Status != subscription.StatusActive {
		return nil
	}
	switch {
	case existing == nil || existing.IsCanceled():
		p.notifyStarted(ctx, rec, false)
	case rec.CurrentPeriodEnd.After(existing.CurrentPeriodEnd):
		p.notifyStarted(ctx, rec, true)
	}
	return nil
}

func (p *Processor) recordFrom(accountID uint, status subscription.Status, payload *stripeSubscriptionPayload, raw json.RawMessage) *model.SubscriptionRecord {
	rec := &model.SubscriptionRecord{
		AccountID:            accountID,
		Status:               status,
		Plan:                 subscription.StarterPlan,
		CurrentPeriodStart:   unixTime(payload.CurrentPeriodStart),
		CurrentPeriodEnd:     unixTime(payload.CurrentPeriodEnd),
		Currency:             "USD",
		StripeCustomerID:     payload.Customer,
		StripeSubscriptionID: payload.ID,
		ProviderData:         datatypes.JSON(raw),
	}

	if len(payload.Items.Data) > 0 {
		price := payload.Items.Data[0].Price
		rec.Plan = p.catalog.DeterminePlanType(price.ID)
		rec.Price = float64(price.UnitAmount) / 100
		if price.Currency != "" {
			rec.Currency = strings.ToUpper(price.Currency)
		}
	}
	if plan, ok := subscription.ParsePlan(payload.Metadata["plan"]); ok && rec.Plan == subscription.StarterPlan {
		rec.Plan = plan
	}
	if status == subscription.StatusCanceled {
		canceledAt := p.clock.Now()
		if payload.CanceledAt > 0 {
			canceledAt = unixTime(payload.CanceledAt)
		}
		rec.CanceledAt = &canceledAt
	}
	return rec
}

func (p *Processor) handleSubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var payload stripeSubscriptionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apperrors.NewValidationError("invalid subscription payload", err.Error())
	}

	existing, err := p.subscriptions.FindByStripeSubscriptionID(ctx, payload.ID)
	if apperrors.IsNotFound(err) {
		p.logger.Warn("deletion for unknown subscription", "subscription", payload.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if existing.IsCanceled() {
		return nil
	}

	canceledAt := p.clock.Now()
	existing.Status = subscription.StatusCanceled
	existing.CanceledAt = &canceledAt
	if err := p.subscriptions.Upsert(ctx, existing); err != nil {
		return err
	}

	p.logger.Info("subscription canceled", "account_id", existing.AccountID, "subscription", payload.ID)

	if account := p.account(ctx, existing.AccountID); account != nil && p.mailer != nil {
		if err := p.mailer.SendSubscriptionCancelledEmail(account.Email, account.Name, planName(existing.Plan), time.Time{}); err != nil {
			p.logger.Error("could not send cancellation email", "account_id", account.ID, "error", err)
		}
	}
	return nil
}

func (p *Processor) handlePaymentFailed(ctx context.Context, raw json.RawMessage) error {
	var invoice stripeInvoicePayload
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return apperrors.NewValidationError("invalid invoice payload", err.Error())
	}
	if invoice.Subscription == "" {
		return nil
	}

	before, err := p.subscriptions.FindByStripeSubscriptionID(ctx, invoice.Subscription)
	if apperrors.IsNotFound(err) {
		p.logger.Warn("payment failure for unknown subscription", "subscription", invoice.Subscription)
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := p.subscriptions.MarkPastDue(ctx, invoice.Subscription)
	if err != nil {
		return err
	}
	if before.Status != subscription.StatusActive || rec.Status != subscription.StatusPastDue {
		return nil
	}

	p.logger.Warn("subscription past due", "account_id", rec.AccountID, "subscription", invoice.Subscription, "invoice", invoice.ID)

	if account := p.account(ctx, rec.AccountID); account != nil && p.mailer != nil {
		if err := p.mailer.SendPaymentFailedEmail(account.Email, account.Name, planName(rec.Plan)); err != nil {
			p.logger.Error("could not send payment failed email", "account_id", account.ID, "error", err)
		}
	}
	return nil
}

func (p *Processor) notifyStarted(ctx context.Context, rec *model.SubscriptionRecord, renewal bool) {
	if p.mailer == nil {
		return
	}
	account := p.account(ctx, rec.AccountID)
	if account == nil {
		return
	}
	err := p.mailer.SendSubscriptionStartedEmail(
		account.Email,
		account.Name,
		planName(rec.Plan),
		rec.Price,
		rec.Currency,
		rec.CurrentPeriodEnd,
		renewal,
	)
	if err != nil {
		p.logger.Error("could not send subscription email", "account_id", account.ID, "error", err)
	}
}

// account is best effort: mail is skipped when the lookup fails.
func (p *Processor) account(ctx context.Context, accountID uint) *model.Account {
	account, err := p.accounts.FindByID(ctx, accountID)
	if err != nil {
		p.logger.Warn("could not load account for notification", "account_id", accountID, "error", err)
		return nil
	}
	return account
}

func accountIDFrom(metadata map[string]string) (uint, bool) {
	v, ok := metadata[MetadataAccountID]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func planName(plan subscription.PlanType) string {
	if p, ok := subscription.GetPlan(plan); ok {
		return p.Name
	}
	return string(plan)
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
