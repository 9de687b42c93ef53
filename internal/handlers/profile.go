package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
)

// ProfileHandler manages the authenticated account.
type ProfileHandler struct {
	accounts   *repository.AccountRepository
	businesses *repository.BusinessRepository
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(accounts *repository.AccountRepository, businesses *repository.BusinessRepository) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, businesses: businesses}
}

// GetProfile returns authenticated user profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	account, err := h.accounts.FindAccountByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "account not found")
		}
		return err
	}

	hasBusiness, err := h.businesses.HasBusiness(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": accountView(account, hasBusiness)})
}

type updateProfileRequest struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	PartnershipNumber *string `json:"partnership_number"`
	UserType          *string `json:"user_type"`
}

// UpdateProfile updates user profile fields. Members may switch between
// member and business_owner; admin types are never self-assigned.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.PartnershipNumber != nil {
		updates["partnership_number"] = strings.TrimSpace(*req.PartnershipNumber)
	}
	if req.UserType != nil {
		userType := models.UserType(*req.UserType)
		if userType != models.UserTypeMember && userType != models.UserTypeBusinessOwner {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user type")
		}
		updates["user_type"] = userType
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	account, err := h.accounts.UpdateProfile(c.UserContext(), userID, updates)
	if err != nil {
		return err
	}

	hasBusiness, err := h.businesses.HasBusiness(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": accountView(account, hasBusiness)})
}
