package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/faithconnect/internal/middleware"
	"github.com/example/faithconnect/internal/models"
)

// StateChangeHook runs after a business mutation has committed.
type StateChangeHook interface {
	OnBusinessStateChanged(ctx context.Context, businessID uuid.UUID)
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return userID, nil
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}

// accountView is the public projection of an account.
func accountView(account *models.Account, hasBusiness bool) fiber.Map {
	return fiber.Map{
		"id":                   account.ID,
		"phone":                account.Phone,
		"email":                account.Email,
		"first_name":           account.FirstName,
		"last_name":            account.LastName,
		"partnership_number":   account.PartnershipNumber,
		"user_type":            account.UserType,
		"phone_verified":       account.PhoneVerified,
		"email_verified":       account.EmailVerified,
		"is_verified":          account.IsVerified,
		"has_business_profile": hasBusiness,
		"created_at":           account.CreatedAt,
	}
}

func now() time.Time {
	return time.Now().UTC()
}
