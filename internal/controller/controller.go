package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"apexmind_backend/internal/middleware"
	"apexmind_backend/internal/repository"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/entitlement"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/trial"
)

var (
	accountRepo      *repository.AccountRepository
	subscriptionRepo *repository.SubscriptionRepository
	resolver         *entitlement.Resolver
	trialPolicy      = trial.NewPolicy(0)
	appClock         clock.Clock = clock.System()
)

// InitStores wires the repositories and resolver every controller reads from.
func InitStores(accounts *repository.AccountRepository, subscriptions *repository.SubscriptionRepository, r *entitlement.Resolver, clk clock.Clock) {
	accountRepo = accounts
	subscriptionRepo = subscriptions
	resolver = r
	trialPolicy = r.Policy()
	if clk != nil {
		appClock = clk
	}
}

// ErrorHandler renders errors returned from handlers. A storage outage is
// reported as an unknown status, never as a missing subscription.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		if appErr.Type == apperrors.ErrorTypeDependencyUnavailable {
			logger.Warn("dependency unavailable", "path", c.Path(), "error", err)
			return c.Status(appErr.Code).JSON(fiber.Map{
				"status": "unknown",
				"error":  "Service temporarily unavailable",
				"type":   appErr.Type,
			})
		}
		if appErr.Code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "path", c.Path(), "error", err)
		}
		return c.Status(appErr.Code).JSON(fiber.Map{
			"error": appErr.Message,
			"type":  appErr.Type,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	logger.Error("unhandled error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func currentAccountID(c *fiber.Ctx) (uint, error) {
	claims := middleware.Claims(c)
	if claims == nil {
		return 0, apperrors.NewUnauthorizedError("Unauthorized")
	}
	return claims.AccountID, nil
}
