package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/faithconnect/internal/metrics"
	"github.com/example/faithconnect/internal/models"
)

// NotificationStore persists inbox entries and preferences.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	PreferencesFor(ctx context.Context, accountID uuid.UUID) (*models.NotificationPreference, error)
}

// Notice is one notification to deliver to an account.
type Notice struct {
	Account      models.Account
	Category     models.NotificationCategory
	Title        string
	Message      string
	Link         string
	BusinessID   *uuid.UUID
	Data         map[string]interface{}
	SMS          bool
	SMSText      string
	Email        bool
	EmailSubject string
	EmailHTML    string
}

// NotificationService stores in-app notifications and fans out to SMS and email.
type NotificationService struct {
	store   NotificationStore
	sms     SMSSender
	email   EmailSender
	timeout time.Duration
}

// NewNotificationService creates a NotificationService. Nil senders disable a channel.
func NewNotificationService(store NotificationStore, sms SMSSender, email EmailSender, timeout time.Duration) *NotificationService {
	return &NotificationService{store: store, sms: sms, email: email, timeout: timeout}
}

// Notify always records the in-app notification and returns an error only if
// that fails. External deliveries respect preferences and never fail the call.
func (s *NotificationService) Notify(ctx context.Context, n Notice) error {
	notification := &models.Notification{
		AccountID:  n.Account.ID,
		Category:   n.Category,
		Title:      n.Title,
		Message:    n.Message,
		Link:       n.Link,
		BusinessID: n.BusinessID,
		Data:       n.Data,
	}
	if err := s.store.CreateNotification(ctx, notification); err != nil {
		return err
	}

	if !n.SMS && !n.Email {
		return nil
	}

	prefs, err := s.store.PreferencesFor(ctx, n.Account.ID)
	if err != nil {
		log.Printf("[Notify] load preferences for %s: %v", n.Account.ID, err)
		return nil
	}

	if n.SMS && s.sms != nil && n.Account.PhoneNumber() != "" && prefs.Allows(models.ChannelSMS, n.Category) {
		text := n.SMSText
		if text == "" {
			text = n.Title + ": " + n.Message
		}
		s.deliver(ctx, models.ChannelSMS, func(ctx context.Context) error {
			return s.sms.SendSMS(ctx, n.Account.PhoneNumber(), text)
		})
	}

	if n.Email && s.email != nil && n.Account.EmailAddress() != "" && prefs.Allows(models.ChannelEmail, n.Category) {
		subject := n.EmailSubject
		if subject == "" {
			subject = n.Title
		}
		s.deliver(ctx, models.ChannelEmail, func(ctx context.Context) error {
			return s.email.SendEmail(ctx, EmailMessage{
				To:      n.Account.EmailAddress(),
				Subject: subject,
				HTML:    n.EmailHTML,
				Text:    n.Message,
			})
		})
	}

	return nil
}

func (s *NotificationService) deliver(ctx context.Context, channel models.Channel, send func(context.Context) error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := send(ctx)
	metrics.RecordDelivery(string(channel), "notification", err)
	if err != nil {
		log.Printf("[Notify] %s delivery failed: %v", channel, err)
	}
}
