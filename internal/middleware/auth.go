package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
)

const (
	userContextKey    = "currentUserID"
	accountContextKey = "currentAccount"
)

// TokenParser validates access tokens.
type TokenParser interface {
	ParseAccess(token string) (uuid.UUID, error)
}

// AccountFinder loads accounts by ID.
type AccountFinder interface {
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// AuthMiddleware validates JWT access tokens and loads the authenticated user ID into context.
func AuthMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		userID, err := tokens.ParseAccess(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

// RequireUserType lets through active accounts of one of the given types.
// It must run after AuthMiddleware.
func RequireUserType(accounts AccountFinder, allowed ...models.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := GetCurrentUserID(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		account, err := accounts.FindAccountByID(c.UserContext(), userID)
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		if err != nil {
			return err
		}
		if !account.IsActive {
			return fiber.NewError(fiber.StatusForbidden, "account is disabled")
		}

		for _, t := range allowed {
			if account.UserType == t {
				c.Locals(accountContextKey, account)
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetCurrentAccount returns the account loaded by RequireUserType.
func GetCurrentAccount(c *fiber.Ctx) (*models.Account, bool) {
	account, ok := c.Locals(accountContextKey).(*models.Account)
	return account, ok
}
