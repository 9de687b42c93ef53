package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/faithconnect/internal/models"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var totalAccounts int64
	if err := db.Model(&models.Account{}).Count(&totalAccounts).Error; err != nil {
		return err
	}

	var pendingSignups int64
	if err := db.Model(&models.PendingRegistration{}).Count(&pendingSignups).Error; err != nil {
		return err
	}

	// Accounts by type
	type typeCount struct {
		UserType string `json:"user_type"`
		Count    int64  `json:"count"`
	}
	var typeCounts []typeCount
	if err := db.Model(&models.Account{}).
		Select("user_type, count(*) as count").
		Group("user_type").
		Scan(&typeCounts).Error; err != nil {
		return err
	}
	accountsByType := make(map[string]int64)
	for _, tc := range typeCounts {
		accountsByType[tc.UserType] = tc.Count
	}

	var totalBusinesses, verifiedBusinesses int64
	if err := db.Model(&models.Business{}).Count(&totalBusinesses).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Business{}).Where("is_verified = ?", true).Count(&verifiedBusinesses).Error; err != nil {
		return err
	}

	var totalReviews int64
	if err := db.Model(&models.Review{}).Count(&totalReviews).Error; err != nil {
		return err
	}

	at := now()
	var activeCampaigns int64
	if err := db.Model(&models.Campaign{}).
		Where("status = ? AND starts_at <= ? AND ends_at > ?", models.CampaignActive, at, at).
		Count(&activeCampaigns).Error; err != nil {
		return err
	}

	var rewardsAwarded int64
	if err := db.Model(&models.AwardedReward{}).Count(&rewardsAwarded).Error; err != nil {
		return err
	}

	// Businesses awaiting verification
	var awaiting []models.Business
	if err := db.Where("is_verified = ? AND is_active = ?", false, true).
		Order("created_at DESC").
		Limit(5).
		Find(&awaiting).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_accounts":        totalAccounts,
			"pending_signups":       pendingSignups,
			"accounts_by_type":      accountsByType,
			"total_businesses":      totalBusinesses,
			"verified_businesses":   verifiedBusinesses,
			"total_reviews":         totalReviews,
			"active_campaigns":      activeCampaigns,
			"rewards_awarded":       rewardsAwarded,
			"awaiting_verification": awaiting,
		},
	})
}
