package controller

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"github.com/stripe/stripe-go/v74/webhook"

	"apexmind_backend/internal/billing"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/config"
	"apexmind_backend/pkg/email"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/subscription"
)

type CheckoutInput struct {
	Plan   string `json:"plan"`
	Period string `json:"period"`
}

type planView struct {
	subscription.Plan
	YearlyPrice float64                `json:"yearlyPrice"`
	Limits      subscriptionLimitsView `json:"limits"`
}

type subscriptionLimitsView struct {
	DocumentsPerMonth int `json:"documentsPerMonth"`
	Integrations      int `json:"integrations"`
	TeamMembers       int `json:"teamMembers"`
	CustomFolders     int `json:"customFolders"`
}

var (
	stripeConfig   config.StripeConfig
	priceCatalog   = subscription.NewPriceCatalog()
	eventProcessor *billing.Processor

	// Stripe calls, replaced in tests.
	newCheckoutSession = session.New
	cancelStripeSub    = func(id string) error {
		_, err := stripesub.Cancel(id, nil)
		return err
	}
)

func InitSubscriptionController(cfg config.StripeConfig, catalog *subscription.PriceCatalog, processor *billing.Processor) {
	stripeConfig = cfg
	priceCatalog = catalog
	eventProcessor = processor
	stripe.Key = cfg.SecretKey
}

// NewPriceCatalog binds the configured Stripe price ids to plans.
func NewPriceCatalog(cfg config.StripeConfig) *subscription.PriceCatalog {
	return subscription.NewPriceCatalog().
		Register(subscription.BusinessProPlan, subscription.Monthly, cfg.PriceBusinessPro).
		Register(subscription.BusinessProPlan, subscription.Yearly, cfg.PriceBusinessProYr).
		Register(subscription.EnterprisePlan, subscription.Monthly, cfg.PriceEnterprise).
		Register(subscription.EnterprisePlan, subscription.Yearly, cfg.PriceEnterpriseYr)
}

func ListPlans(c *fiber.Ctx) error {
	plans := make([]planView, 0, len(subscription.Plans))
	for _, p := range subscription.Plans {
		limits := subscription.GetPlanLimits(p.ID)
		plans = append(plans, planView{
			Plan:        p,
			YearlyPrice: p.PriceFor(subscription.Yearly),
			Limits: subscriptionLimitsView{
				DocumentsPerMonth: limits.MaxDocumentsPerMonth,
				Integrations:      limits.MaxIntegrations,
				TeamMembers:       limits.MaxTeamMembers,
				CustomFolders:     limits.MaxCustomFolders,
			},
		})
	}

	return c.JSON(fiber.Map{
		"plans":          plans,
		"yearlyDiscount": 20,
	})
}

func CreateCheckoutSession(c *fiber.Ctx) error {
	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	plan, ok := subscription.ParsePlan(input.Plan)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown plan",
		})
	}
	if plan == subscription.StarterPlan {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Starter plan does not require payment",
		})
	}

	period := subscription.BillingPeriod(strings.ToLower(input.Period))
	if period == "" {
		period = subscription.Monthly
	}
	if period != subscription.Monthly && period != subscription.Yearly {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Period must be monthly or yearly",
		})
	}

	priceID, ok := priceCatalog.PriceID(plan, period)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Plan is not available for purchase",
		})
	}

	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}
	account, err := accountRepo.FindByID(c.UserContext(), accountID)
	if err != nil {
		return err
	}

	existing, err := subscriptionRepo.GetActiveSubscription(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == subscription.StatusActive && appClock.Now().Before(existing.CurrentPeriodEnd) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Subscription already active",
		})
	}

	metadata := map[string]string{
		billing.MetadataAccountID: fmt.Sprint(account.ID),
		"plan":                    string(plan),
		"period":                  string(period),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(account.Email),
		ClientReferenceID: stripe.String(fmt.Sprint(account.ID)),
		SuccessURL:        stripe.String(stripeConfig.SuccessURL),
		CancelURL:         stripe.String(stripeConfig.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}

	s, err := newCheckoutSession(params)
	if err != nil {
		logger.Error("could not create checkout session", "account_id", account.ID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"sessionId": s.ID,
		"url":       s.URL,
	})
}

func CancelSubscription(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	rec, err := subscriptionRepo.GetActiveSubscription(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	if rec == nil || rec.IsCanceled() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	if rec.StripeSubscriptionID != "" {
		if err := cancelStripeSub(rec.StripeSubscriptionID); err != nil {
			logger.Error("could not cancel stripe subscription", "account_id", accountID, "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Could not cancel Stripe subscription",
			})
		}
	}

	now := appClock.Now()
	rec.Status = subscription.StatusCanceled
	rec.CanceledAt = &now
	if err := subscriptionRepo.Upsert(c.UserContext(), rec); err != nil {
		return err
	}

	if email.GlobalEmailService != nil {
		if account, err := accountRepo.FindByID(c.UserContext(), accountID); err == nil {
			planName := string(rec.Plan)
			if p, ok := subscription.GetPlan(rec.Plan); ok {
				planName = p.Name
			}
			if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(account.Email, account.Name, planName, now); err != nil {
				logger.Warn("could not send cancellation email", "account_id", accountID, "error", err)
			}
		}
	}

	return c.JSON(fiber.Map{
		"message": "Subscription cancelled successfully",
	})
}

func GetMySubscription(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	rec, err := subscriptionRepo.GetActiveSubscription(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	plan, _ := subscription.GetPlan(rec.Plan)
	return c.JSON(fiber.Map{
		"subscription": rec,
		"plan":         plan,
	})
}

func HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), stripeConfig.WebhookSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	logger.Info("processing stripe webhook", "type", event.Type, "event_id", event.ID)

	if err := eventProcessor.Handle(c.UserContext(), string(event.Type), event.Data.Raw); err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Type == apperrors.ErrorTypeValidation {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": appErr.Message,
			})
		}
		return err
	}

	return c.JSON(fiber.Map{"received": true})
}
