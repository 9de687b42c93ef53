package models

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

// ActionType names the business milestone a campaign action rewards.
type ActionType string

const (
	ActionAddLogo         ActionType = "add_logo"
	ActionAddBanner       ActionType = "add_banner"
	ActionAddDescription  ActionType = "add_description"
	ActionAddProduct      ActionType = "add_product"
	ActionAddService      ActionType = "add_service"
	ActionAdd5Products    ActionType = "add_5_products"
	ActionAdd5Services    ActionType = "add_5_services"
	ActionGetVerified     ActionType = "get_verified"
	ActionGetFirstReview  ActionType = "get_first_review"
	ActionGet5Reviews     ActionType = "get_5_reviews"
	ActionAddSocialLinks  ActionType = "add_social_links"
	ActionCompleteProfile ActionType = "complete_profile"
)

// ActionTypes lists every supported action type.
var ActionTypes = []ActionType{
	ActionAddLogo,
	ActionAddBanner,
	ActionAddDescription,
	ActionAddProduct,
	ActionAddService,
	ActionAdd5Products,
	ActionAdd5Services,
	ActionGetVerified,
	ActionGetFirstReview,
	ActionGet5Reviews,
	ActionAddSocialLinks,
	ActionCompleteProfile,
}

// Valid reports whether t is a supported action type.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type RewardType string

const (
	RewardBadge    RewardType = "badge"
	RewardFeatured RewardType = "featured"
	RewardDiscount RewardType = "discount"
	RewardBoost    RewardType = "boost"
	RewardPriority RewardType = "priority"
)

// Valid reports whether t is a known reward type.
func (t RewardType) Valid() bool {
	switch t {
	case RewardBadge, RewardFeatured, RewardDiscount, RewardBoost, RewardPriority:
		return true
	}
	return false
}

// Campaign is a time-bounded marketing programme.
type Campaign struct {
	BaseModel
	Name                 string           `gorm:"size:255;not null" json:"name"`
	Description          string           `gorm:"type:text" json:"description"`
	StartsAt             time.Time        `gorm:"not null;index" json:"start_date"`
	EndsAt               time.Time        `gorm:"not null;index" json:"end_date"`
	Status               CampaignStatus   `gorm:"size:20;not null;index" json:"status"`
	TotalPointsAvailable int              `gorm:"not null;default:0" json:"total_points_available"`
	ParticipantsCount    int              `gorm:"not null;default:0" json:"participants_count"`
	CreatedByID          *uuid.UUID       `gorm:"type:uuid" json:"created_by_id,omitempty"`
	Actions              []CampaignAction `json:"actions,omitempty"`
	Rewards              []Reward         `json:"rewards,omitempty"`
}

// IsActive reports whether the campaign is running at now. The window is [StartsAt, EndsAt).
func (c Campaign) IsActive(now time.Time) bool {
	return c.Status == CampaignActive && !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

// SumActionPoints totals the points of the loaded actions.
func (c Campaign) SumActionPoints() int {
	total := 0
	for _, a := range c.Actions {
		total += a.Points
	}
	return total
}

type CampaignAction struct {
	BaseModel
	CampaignID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_campaign_action_type" json:"campaign_id"`
	ActionType   ActionType `gorm:"size:50;not null;uniqueIndex:idx_campaign_action_type" json:"action_type"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Description  string     `gorm:"type:text" json:"description"`
	Points       int        `gorm:"not null" json:"points"`
	DisplayOrder int        `gorm:"not null;default:0" json:"order"`
}

// BusinessCampaignProgress tracks one business in one campaign.
type BusinessCampaignProgress struct {
	BaseModel
	BusinessID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_business_campaign" json:"business_id"`
	CampaignID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_business_campaign" json:"campaign_id"`
	PointsEarned     int               `gorm:"not null;default:0" json:"points_earned"`
	Completed        bool              `gorm:"not null" json:"is_completed"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	EnrolledAt       time.Time         `json:"enrolled_at"`
	LastActivityAt   time.Time         `json:"last_activity_at"`
	CompletedActions []CompletedAction `gorm:"foreignKey:ProgressID" json:"completed_actions,omitempty"`
}

func (BusinessCampaignProgress) TableName() string {
	return "business_campaign_progress"
}

// CompletedAction records a single point award.
type CompletedAction struct {
	BaseModel
	ProgressID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_action" json:"progress_id"`
	ActionID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_action" json:"action_id"`
	PointsEarned int        `gorm:"not null" json:"points_earned"`
	CompletedAt  time.Time  `gorm:"not null" json:"completed_at"`
	VerifiedByID *uuid.UUID `gorm:"type:uuid" json:"verified_by_id,omitempty"`
}

type Reward struct {
	BaseModel
	CampaignID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"campaign_id"`
	Type           RewardType `gorm:"size:20;not null" json:"reward_type"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	RequiredPoints int        `gorm:"not null" json:"required_points"`
	IconURL        string     `gorm:"size:500" json:"icon"`
	DurationDays   *int       `json:"duration_days,omitempty"`
}

// AwardedReward records that a business unlocked a reward.
type AwardedReward struct {
	BaseModel
	BusinessID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_business_reward" json:"business_id"`
	RewardID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_business_reward" json:"reward_id"`
	ProgressID uuid.UUID  `gorm:"type:uuid;not null;index" json:"progress_id"`
	AwardedAt  time.Time  `gorm:"not null" json:"awarded_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	Reward     Reward     `json:"reward"`
}

// FeaturedBusiness is a time-bounded promotional placement.
type FeaturedBusiness struct {
	BaseModel
	BusinessID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"business_id"`
	StartsAt    time.Time  `gorm:"not null;index" json:"start_date"`
	EndsAt      time.Time  `gorm:"not null;index" json:"end_date"`
	Priority    int        `gorm:"not null;default:0" json:"priority"`
	OnHomepage  bool       `gorm:"not null" json:"show_on_homepage"`
	InDirectory bool       `gorm:"not null" json:"show_in_directory"`
	InCategory  bool       `gorm:"not null" json:"show_in_category"`
	CampaignID  *uuid.UUID `gorm:"type:uuid" json:"campaign_id,omitempty"`
	Reason      string     `gorm:"size:255" json:"reason"`
	IsPaid      bool       `gorm:"not null" json:"is_paid"`
	Business    Business   `json:"business"`
}

// ActiveAt reports whether the placement window contains now.
func (f FeaturedBusiness) ActiveAt(now time.Time) bool {
	return !now.Before(f.StartsAt) && now.Before(f.EndsAt)
}

// FeaturedReason is the reason recorded on campaign-earned placements.
func FeaturedReason(campaignName string) string {
	return "Earned from campaign: " + campaignName
}
