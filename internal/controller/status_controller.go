package controller

import (
	"github.com/gofiber/fiber/v2"

	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/subscription"
)

// GetTrialStatus reports the trial window and days left for the caller.
func GetTrialStatus(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	account, state, err := resolver.ResolveTrial(c.UserContext(), accountID, appClock.Now())
	if apperrors.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"isTrialActive":  state.IsActive,
		"daysRemaining":  state.DaysRemaining,
		"totalTrialDays": state.TotalTrialDays,
		"trialStartDate": account.TrialStartDate,
		"trialEndDate":   account.TrialEndDate,
	})
}

// GetSubscriptionStatus describes the caller's paid subscription, if any.
func GetSubscriptionStatus(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	rec, err := subscriptionRepo.GetActiveSubscription(c.UserContext(), accountID)
	if err != nil {
		return err
	}

	if rec == nil {
		return c.JSON(fiber.Map{
			"isPaidSubscription": false,
			"isPastDue":          false,
			"status":             subscription.StatusNone,
			"plan":               nil,
			"planName":           nil,
			"nextPaymentDate":    nil,
			"amount":             0,
			"currency":           nil,
		})
	}

	if err := rec.Validate(); err != nil {
		logger.Error("invalid subscription record", "account_id", accountID, "error", err)
		return c.JSON(fiber.Map{
			"isPaidSubscription": false,
			"isPastDue":          false,
			"status":             rec.Status,
			"plan":               rec.Plan,
			"planName":           nil,
			"nextPaymentDate":    nil,
			"amount":             rec.Price,
			"currency":           rec.Currency,
		})
	}

	now := appClock.Now()
	isPaid := rec.Status == subscription.StatusActive && now.Before(rec.CurrentPeriodEnd)

	var planName interface{}
	if p, ok := subscription.GetPlan(rec.Plan); ok {
		planName = p.Name
	}
	var nextPaymentDate interface{}
	if isPaid {
		nextPaymentDate = rec.CurrentPeriodEnd
	}

	return c.JSON(fiber.Map{
		"isPaidSubscription": isPaid,
		"isPastDue":          rec.Status == subscription.StatusPastDue,
		"status":             rec.Status,
		"plan":               rec.Plan,
		"planName":           planName,
		"nextPaymentDate":    nextPaymentDate,
		"amount":             rec.Price,
		"currency":           rec.Currency,
	})
}

// GetAccess returns the resolved access level and what it unlocks.
func GetAccess(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	level, err := resolver.ResolveAccess(c.UserContext(), accountID, appClock.Now())
	if apperrors.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		return err
	}

	var plan interface{}
	if p, ok := level.EffectivePlan(); ok {
		plan = p
	}

	return c.JSON(fiber.Map{
		"level":         level.Kind,
		"daysRemaining": level.DaysRemaining,
		"plan":          plan,
		"canWrite":      level.CanWrite(),
		"features":      level.Features(),
	})
}
