package controller

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"apexmind_backend/internal/middleware"
	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/subscription"
)

const defaultFolderColor = "#6B7280"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type FolderInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func ListFolders(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	folders, err := accountRepo.ListFolders(c.UserContext(), accountID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"folders": folders,
	})
}

// CreateFolder adds a custom folder. Runs behind RequireWriteAccess, which
// leaves the resolved level in the request.
func CreateFolder(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	input := new(FolderInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || strings.Contains(name, "/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Folder name is required and must not contain '/'",
		})
	}
	color := input.Color
	if color == "" {
		color = defaultFolderColor
	}
	if !hexColor.MatchString(color) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Color must be a hex value like #3B82F6",
		})
	}

	if level, ok := middleware.AccessLevel(c); ok {
		if plan, ok := level.EffectivePlan(); ok {
			limit := subscription.GetPlanLimits(plan).MaxCustomFolders
			if limit != subscription.Unlimited {
				count, err := accountRepo.CountCustomFolders(c.UserContext(), accountID)
				if err != nil {
					return err
				}
				if count >= int64(limit) {
					return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
						"error": "You have reached your folder limit. Please upgrade your plan.",
						"limit": limit,
					})
				}
			}
		}
	}

	folder := model.Folder{
		AccountID: accountID,
		Name:      name,
		Color:     color,
		Path:      "/" + name,
	}
	if err := accountRepo.CreateFolder(c.UserContext(), &folder); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"folder": folder,
	})
}
