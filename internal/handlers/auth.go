package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/faithconnect/internal/apperr"
	"github.com/example/faithconnect/internal/identity"
	"github.com/example/faithconnect/internal/repository"
)

// AuthHandler exposes one-time-code signup and login.
type AuthHandler struct {
	identity   *identity.Service
	businesses *repository.BusinessRepository
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(identity *identity.Service, businesses *repository.BusinessRepository) *AuthHandler {
	return &AuthHandler{identity: identity, businesses: businesses}
}

type signupRequest struct {
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	PartnershipNumber string `json:"partnership_number"`
	Method            string `json:"method"`
}

type codeRequest struct {
	Identifier string `json:"identifier"`
	Method     string `json:"method"`
}

type verifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"otp"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Signup starts a registration and sends its code.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ack, err := h.identity.RequestSignup(c.UserContext(), identity.SignupRequest{
		Phone:             req.Phone,
		Email:             req.Email,
		FirstName:         req.FirstName,
		PartnershipNumber: req.PartnershipNumber,
		Method:            req.Method,
	})
	return h.acknowledge(c, ack, err, "Verification code sent")
}

// Login sends a code to an existing account.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ack, err := h.identity.RequestLogin(c.UserContext(), req.Identifier, req.Method)
	return h.acknowledge(c, ack, err, "Login code sent")
}

// Resend sends a fresh code to an account or pending registration.
func (h *AuthHandler) Resend(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ack, err := h.identity.ResendCode(c.UserContext(), req.Identifier, req.Method)
	return h.acknowledge(c, ack, err, "Verification code resent")
}

// acknowledge renders a code-issuing result. A delivery failure still echoes
// the identifier because the code exists and can be resent.
func (h *AuthHandler) acknowledge(c *fiber.Ctx, ack identity.Ack, err error, message string) error {
	if apperr.HasCode(err, apperr.CodeDeliveryFailed) && ack.Identifier != "" {
		return c.Status(apperr.CodeDeliveryFailed.HTTPStatus()).JSON(fiber.Map{
			"success":    false,
			"identifier": ack.Identifier,
			"method":     ack.Method,
			"error": fiber.Map{
				"code":    apperr.CodeDeliveryFailed,
				"message": "Failed to send code via " + string(ack.Method) + ". Please request a new code",
			},
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    message,
		"identifier": ack.Identifier,
		"method":     ack.Method,
	})
}

// Verify checks a code and issues a session.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.identity.VerifyCode(c.UserContext(), req.Identifier, req.Code)
	if err != nil {
		return err
	}

	hasBusiness, err := h.businesses.HasBusiness(c.UserContext(), session.Account.ID)
	if err != nil {
		log.Printf("[Auth] failed to check business for %s: %v", session.Account.ID, err)
	}

	status := fiber.StatusOK
	if session.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"access":  session.Tokens.AccessToken,
		"refresh": session.Tokens.RefreshToken,
		"user":    accountView(session.Account, hasBusiness),
	})
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.identity.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"access":  tokens.AccessToken,
		"refresh": tokens.RefreshToken,
	})
}
