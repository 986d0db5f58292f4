package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/email"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/utils/jwt"
)

const minPasswordLength = 6

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// workspaceSlug derives a URL-safe slug from the company or personal name,
// suffixed when taken.
func workspaceSlug(c *fiber.Ctx, input *RegisterInput) (string, error) {
	base := input.Company
	if strings.TrimSpace(base) == "" {
		base = input.Name
	}
	s := slug.Make(base)
	if s == "" {
		s = "workspace"
	}

	taken, err := accountRepo.SlugExists(c.UserContext(), s)
	if err != nil {
		return "", err
	}
	if taken {
		s = s + "-" + uuid.NewString()[:8]
	}
	return s, nil
}

func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name, email and password are required",
		})
	}
	if len(input.Password) < minPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password must be at least 6 characters",
		})
	}

	if _, err := accountRepo.FindByEmail(c.UserContext(), input.Email); err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User already exists",
		})
	} else if !apperrors.IsNotFound(err) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	workspace, err := workspaceSlug(c, input)
	if err != nil {
		return err
	}

	window := trialPolicy.NewWindow(appClock.Now())
	account := model.Account{
		Email:          input.Email,
		Password:       string(hashedPassword),
		Name:           input.Name,
		Company:        strings.TrimSpace(input.Company),
		Slug:           workspace,
		TrialStartDate: window.Start,
		TrialEndDate:   window.End,
	}

	if err := accountRepo.Create(c.UserContext(), &account); err != nil {
		if apperrors.IsConflict(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "User already exists",
			})
		}
		return err
	}

	token, err := jwt.GenerateToken(account.ID, account.Email, account.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	if email.GlobalEmailService != nil {
		trialDays := int(trialPolicy.Length.Hours() / 24)
		if err := email.GlobalEmailService.SendWelcomeEmail(account.Email, account.Name, trialDays, account.TrialEndDate); err != nil {
			logger.Warn("could not send welcome email", "account_id", account.ID, "error", err)
		}
	}

	logger.Info("account registered", "account_id", account.ID, "trial_end", account.TrialEndDate)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"token":   token,
		"user":    account.GetPublicProfile(),
	})
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	account, err := accountRepo.FindByEmail(c.UserContext(), input.Email)
	if apperrors.IsNotFound(err) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := jwt.GenerateToken(account.ID, account.Email, account.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	entry := &model.LoginHistory{
		AccountID: account.ID,
		Device:    c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	}
	if err := accountRepo.RecordLogin(c.UserContext(), entry); err != nil {
		logger.Warn("could not record login", "account_id", account.ID, "error", err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  account.GetPublicProfile(),
	})
}

// GetMe returns the authenticated account.
func GetMe(c *fiber.Ctx) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	account, err := accountRepo.FindByID(c.UserContext(), accountID)
	if apperrors.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": account.GetPublicProfile(),
	})
}
