package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/entitlement"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/subscription"
)

type AccessResolver interface {
	ResolveAccess(ctx context.Context, accountID uint, now time.Time) (entitlement.AccessLevel, error)
}

var (
	accessResolver AccessResolver
	accessClock    clock.Clock = clock.System()
)

func InitAccessMiddleware(resolver AccessResolver, clk clock.Clock) {
	accessResolver = resolver
	if clk != nil {
		accessClock = clk
	}
}

// AccessLevel returns the level resolved earlier in this request by one of the
// guards.
func AccessLevel(c *fiber.Ctx) (entitlement.AccessLevel, bool) {
	level, ok := c.Locals("access").(entitlement.AccessLevel)
	return level, ok
}

// resolve runs once per request. A false return means a response was
// already written.
func resolve(c *fiber.Ctx) (entitlement.AccessLevel, bool, error) {
	if level, ok := AccessLevel(c); ok {
		return level, true, nil
	}

	claims := Claims(c)
	if claims == nil {
		return entitlement.AccessLevel{}, false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	level, err := accessResolver.ResolveAccess(c.UserContext(), claims.AccountID, accessClock.Now())
	if err != nil {
		return entitlement.AccessLevel{}, false, respondResolveError(c, claims.AccountID, err)
	}

	c.Locals("access", level)
	return level, true, nil
}

func respondResolveError(c *fiber.Ctx, accountID uint, err error) error {
	switch {
	case apperrors.IsDependencyUnavailable(err):
		logger.Warn("access status unknown", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unknown",
			"error":  "Subscription status is temporarily unavailable",
		})
	case apperrors.IsNotFound(err):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Account not found",
		})
	default:
		logger.Error("access resolution failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not resolve access",
		})
	}
}

func paymentRequired(c *fiber.Ctx, level entitlement.AccessLevel) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
		"error":      "Trial has ended. Choose a plan to continue",
		"level":      level.Kind,
		"upgradeUrl": "/subscription",
		"plans":      subscription.Plans,
	})
}

func pastDue(c *fiber.Ctx, level entitlement.AccessLevel) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "Payment is past due. The workspace is read-only until billing is updated",
		"level": level.Kind,
		"plan":  level.Plan,
	})
}

// RequireAccess admits any level with read access.
func RequireAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		level, ok, err := resolve(c)
		if !ok {
			return err
		}
		if !level.CanRead() {
			return paymentRequired(c, level)
		}
		return c.Next()
	}
}

// RequireWriteAccess admits trial and paid-active accounts only.
func RequireWriteAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		level, ok, err := resolve(c)
		if !ok {
			return err
		}
		if !level.CanRead() {
			return paymentRequired(c, level)
		}
		if !level.CanWrite() {
			return pastDue(c, level)
		}
		return c.Next()
	}
}

func CheckFeatureAccess(feature subscription.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		level, ok, err := resolve(c)
		if !ok {
			return err
		}
		if !level.CanRead() {
			return paymentRequired(c, level)
		}
		if !level.Allows(feature) {
			if level.Kind == entitlement.PaidPastDue && subscription.IsWriteFeature(feature) {
				return pastDue(c, level)
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "This feature requires a higher subscription plan",
				"feature": feature,
			})
		}
		return c.Next()
	}
}
