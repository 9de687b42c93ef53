package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationCategory string

const (
	CategoryNewReview          NotificationCategory = "new_review"
	CategoryBusinessVerified   NotificationCategory = "business_verified"
	CategoryBusinessFeatured   NotificationCategory = "business_featured"
	CategoryLowTrustScore      NotificationCategory = "low_trust_score"
	CategoryWeeklyPerformance  NotificationCategory = "weekly_performance"
	CategoryNewBusiness        NotificationCategory = "new_business"
	CategoryFeaturedWeekly     NotificationCategory = "featured_weekly"
	CategorySpecialOffer       NotificationCategory = "special_offer"
	CategoryChurchAnnouncement NotificationCategory = "church_announcement"
	CategoryCampaign           NotificationCategory = "campaign"
)

// Notification is an in-app inbox entry.
type Notification struct {
	BaseModel
	AccountID  uuid.UUID            `gorm:"type:uuid;not null;index" json:"account_id"`
	Category   NotificationCategory `gorm:"size:30;not null;index" json:"notification_type"`
	Title      string               `gorm:"size:255;not null" json:"title"`
	Message    string               `gorm:"type:text" json:"message"`
	Link       string               `gorm:"size:500" json:"link,omitempty"`
	BusinessID *uuid.UUID           `gorm:"type:uuid" json:"business_id,omitempty"`
	Data       datatypes.JSONMap    `json:"data,omitempty"`
	IsRead     bool                 `gorm:"not null;index" json:"is_read"`
	ReadAt     *time.Time           `json:"read_at,omitempty"`
}

// NotificationPreference holds per-category SMS and email toggles.
type NotificationPreference struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`

	SMSNewReview         bool `json:"sms_new_review"`
	SMSBusinessVerified  bool `json:"sms_business_verified"`
	SMSBusinessFeatured  bool `json:"sms_business_featured"`
	SMSLowTrustScore     bool `json:"sms_low_trust_score"`
	SMSWeeklyPerformance bool `json:"sms_weekly_performance"`
	SMSCampaign          bool `json:"sms_campaign"`

	EmailNewReview          bool `json:"email_new_review"`
	EmailBusinessVerified   bool `json:"email_business_verified"`
	EmailBusinessFeatured   bool `json:"email_business_featured"`
	EmailLowTrustScore      bool `json:"email_low_trust_score"`
	EmailWeeklyPerformance  bool `json:"email_weekly_performance"`
	EmailNewBusiness        bool `json:"email_new_business"`
	EmailFeaturedWeekly     bool `json:"email_featured_weekly"`
	EmailSpecialOffer       bool `json:"email_special_offer"`
	EmailChurchAnnouncement bool `json:"email_church_announcement"`
	EmailCampaign           bool `json:"email_campaign"`
}

// DefaultNotificationPreference returns the preferences a new account starts with.
func DefaultNotificationPreference(accountID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		AccountID:               accountID,
		SMSNewReview:            true,
		SMSBusinessVerified:     true,
		SMSBusinessFeatured:     true,
		SMSLowTrustScore:        false,
		SMSWeeklyPerformance:    false,
		SMSCampaign:             true,
		EmailNewReview:          true,
		EmailBusinessVerified:   true,
		EmailBusinessFeatured:   true,
		EmailLowTrustScore:      true,
		EmailWeeklyPerformance:  true,
		EmailNewBusiness:        false,
		EmailFeaturedWeekly:     true,
		EmailSpecialOffer:       true,
		EmailChurchAnnouncement: true,
		EmailCampaign:           true,
	}
}

// Allows reports whether category may be delivered on channel.
// Categories without a toggle for the channel are never delivered there.
func (p NotificationPreference) Allows(channel Channel, category NotificationCategory) bool {
	switch channel {
	case ChannelSMS:
		switch category {
		case CategoryNewReview:
			return p.SMSNewReview
		case CategoryBusinessVerified:
			return p.SMSBusinessVerified
		case CategoryBusinessFeatured:
			return p.SMSBusinessFeatured
		case CategoryLowTrustScore:
			return p.SMSLowTrustScore
		case CategoryWeeklyPerformance:
			return p.SMSWeeklyPerformance
		case CategoryCampaign:
			return p.SMSCampaign
		}
	case ChannelEmail:
		switch category {
		case CategoryNewReview:
			return p.EmailNewReview
		case CategoryBusinessVerified:
			return p.EmailBusinessVerified
		case CategoryBusinessFeatured:
			return p.EmailBusinessFeatured
		case CategoryLowTrustScore:
			return p.EmailLowTrustScore
		case CategoryWeeklyPerformance:
			return p.EmailWeeklyPerformance
		case CategoryNewBusiness:
			return p.EmailNewBusiness
		case CategoryFeaturedWeekly:
			return p.EmailFeaturedWeekly
		case CategorySpecialOffer:
			return p.EmailSpecialOffer
		case CategoryChurchAnnouncement:
			return p.EmailChurchAnnouncement
		case CategoryCampaign:
			return p.EmailCampaign
		}
	}
	return false
}
