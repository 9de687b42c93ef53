package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/faithconnect/internal/models"
)

// NotificationRepository stores inbox entries and delivery preferences.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// PreferencesFor returns the account's preferences, creating the defaults on first use.
func (r *NotificationRepository) PreferencesFor(ctx context.Context, accountID uuid.UUID) (*models.NotificationPreference, error) {
	var prefs models.NotificationPreference
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&prefs).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prefs = models.DefaultNotificationPreference(accountID)
	if err := r.db.WithContext(ctx).Create(&prefs).Error; err != nil {
		if !isDuplicate(err) {
			return nil, err
		}
		var existing models.NotificationPreference
		if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &prefs, nil
}

// SavePreferences writes every toggle of prefs.
func (r *NotificationRepository) SavePreferences(ctx context.Context, prefs *models.NotificationPreference) error {
	return r.db.WithContext(ctx).Save(prefs).Error
}

// List returns a page of the account's notifications, newest first, plus the total.
func (r *NotificationRepository) List(ctx context.Context, accountID uuid.UUID, unreadOnly bool, offset, limit int) ([]models.Notification, int64, error) {
	scope := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("account_id = ?", accountID)
		if unreadOnly {
			query = query.Where("is_read = ?", false)
		}
		return query
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Notification
	err := scope().Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// UnreadCount counts unread notifications.
func (r *NotificationRepository) UnreadCount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the account's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, accountID, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification as read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, accountID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}
