package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/faithconnect/internal/apperr"
	"github.com/example/faithconnect/internal/repository"
	"github.com/example/faithconnect/internal/utils"
)

// NotificationHandler serves the in-app inbox and delivery preferences.
type NotificationHandler struct {
	notifications *repository.NotificationRepository
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns a page of my notifications, newest first.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	items, total, err := h.notifications.List(c.UserContext(), userID, c.QueryBool("unread"), pg.Offset, pg.Limit)
	if err != nil {
		return err
	}
	unread, err := h.notifications.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"unread":  unread,
		"meta":    pg.Meta(total),
	})
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifications.MarkRead(c.UserContext(), userID, id, now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Notification not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead marks every notification as read.
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	changed, err := h.notifications.MarkAllRead(c.UserContext(), userID, now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "updated": changed})
}

// GetPreferences returns my delivery preferences.
func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	prefs, err := h.notifications.PreferencesFor(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": prefs})
}

// UpdatePreferences overlays the supplied toggles on my preferences.
func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	prefs, err := h.notifications.PreferencesFor(c.UserContext(), userID)
	if err != nil {
		return err
	}

	id, createdAt := prefs.ID, prefs.CreatedAt
	if err := c.BodyParser(prefs); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	prefs.ID, prefs.AccountID, prefs.CreatedAt = id, userID, createdAt

	if err := h.notifications.SavePreferences(c.UserContext(), prefs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": prefs})
}
