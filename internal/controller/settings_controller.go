package controller

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/utils/image"
	"apexmind_backend/pkg/utils/validation"
)

type ProfileUpdateInput struct {
	Name        string          `json:"name"`
	Company     string          `json:"company"`
	Industry    string          `json:"industry"`
	Timezone    string          `json:"timezone"`
	Preferences json.RawMessage `json:"preferences"`
}

// AvatarStore persists avatar images and returns their public URL.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, owner string, body io.Reader, contentType, ext string) (string, error)
	DeleteByURL(ctx context.Context, fullURL string) error
}

var avatarStore AvatarStore

func InitSettingsController(store AvatarStore) {
	avatarStore = store
}

func GetProfile(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	account, err := accountRepo.FindByID(c.UserContext(), accountID)
	if err != nil {
		return err
	}

	profile := account.GetPublicProfile()
	profile["preferences"] = account.Preferences
	return c.JSON(profile)
}

func UpdateProfile(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	input := new(ProfileUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.Company != "" {
		updates["company"] = strings.TrimSpace(input.Company)
	}
	if input.Industry != "" {
		updates["industry"] = strings.TrimSpace(input.Industry)
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown timezone",
			})
		}
		updates["timezone"] = input.Timezone
	}
	if len(input.Preferences) > 0 {
		if !json.Valid(input.Preferences) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Preferences must be valid JSON",
			})
		}
		updates["preferences"] = datatypes.JSON(input.Preferences)
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	account, err := accountRepo.UpdateProfile(c.UserContext(), accountID, updates)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    account.GetPublicProfile(),
	})
}

func UploadAvatar(c *fiber.Ctx) error {
	if avatarStore == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Avatar storage is not configured",
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

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No avatar image provided",
		})
	}
	if err := validation.ValidateImage(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	processed, err := image.ProcessAvatar(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read image",
		})
	}

	avatarURL, err := avatarStore.UploadAvatar(c.UserContext(), account.Slug, processed, image.ContentType, image.Extension)
	if err != nil {
		logger.Error("avatar upload failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not upload avatar",
		})
	}

	if _, err := accountRepo.UpdateProfile(c.UserContext(), accountID, map[string]interface{}{"avatar": avatarURL}); err != nil {
		if delErr := avatarStore.DeleteByURL(c.UserContext(), avatarURL); delErr != nil {
			logger.Warn("could not remove orphaned avatar", "url", avatarURL, "error", delErr)
		}
		if apperrors.GetAppError(err) != nil {
			return err
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update avatar",
		})
	}

	if account.Avatar != "" {
		if err := avatarStore.DeleteByURL(c.UserContext(), account.Avatar); err != nil {
			logger.Warn("could not delete old avatar", "account_id", accountID, "error", err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Avatar uploaded successfully",
		"avatar":  avatarURL,
	})
}
