package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/faithconnect/internal/apperr"
	"github.com/example/faithconnect/internal/middleware"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
)

// Featured listing limits per location.
var featuredLimits = map[repository.FeaturedLocation]int{
	repository.FeaturedHomepage:  6,
	repository.FeaturedDirectory: 3,
	repository.FeaturedCategory:  10,
}

// CampaignHandler manages campaigns, progress, rewards and featured listings.
type CampaignHandler struct {
	campaigns   *repository.CampaignRepository
	businesses  *repository.BusinessRepository
	leaderboard *repository.Leaderboard
	hook        StateChangeHook
}

// NewCampaignHandler constructs CampaignHandler.
func NewCampaignHandler(campaigns *repository.CampaignRepository, businesses *repository.BusinessRepository, leaderboard *repository.Leaderboard, hook StateChangeHook) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, businesses: businesses, leaderboard: leaderboard, hook: hook}
}

// ListActive returns the campaigns running now.
func (h *CampaignHandler) ListActive(c *fiber.Ctx) error {
	campaigns, err := h.campaigns.ActiveCampaigns(c.UserContext(), now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": campaigns})
}

// GetProgress returns my business's progress in an active campaign, enrolling
// it on first view and catching up on actions already satisfied.
func (h *CampaignHandler) GetProgress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	business, err := h.businesses.FindByAccount(c.UserContext(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.CodeNotFound, "You have no business profile")
	}
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.FindCampaign(c.UserContext(), campaignID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.CodeNotFound, "Campaign not found")
	}
	if err != nil {
		return err
	}

	at := now()
	if !campaign.IsActive(at) {
		return apperr.New(apperr.CodeNotFound, "Campaign not found")
	}

	progress, _, err := h.campaigns.EnsureProgress(c.UserContext(), business.ID, campaign.ID, at)
	if err != nil {
		return err
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	progress, err = h.campaigns.ProgressWithActions(c.UserContext(), progress.ID)
	if err != nil {
		return err
	}

	percent := 0
	if campaign.TotalPointsAvailable > 0 {
		percent = progress.PointsEarned * 100 / campaign.TotalPointsAvailable
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"campaign":            campaign,
		"data":                progress,
		"progress_percentage": percent,
	})
}

// MyRewards lists rewards my business has unlocked.
func (h *CampaignHandler) MyRewards(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	business, err := h.businesses.FindByAccount(c.UserContext(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(fiber.Map{"success": true, "data": []models.AwardedReward{}})
	}
	if err != nil {
		return err
	}

	rewards, err := h.campaigns.RewardsForBusiness(c.UserContext(), business.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rewards})
}

// ListFeatured returns featured listings for a location.
func (h *CampaignHandler) ListFeatured(c *fiber.Ctx) error {
	location := repository.FeaturedLocation(c.Query("location", string(repository.FeaturedHomepage)))
	limit, ok := featuredLimits[location]
	if !ok {
		return apperr.New(apperr.CodeValidationFailed, "Location must be homepage, directory or category")
	}

	featured, err := h.campaigns.ActiveFeatured(c.UserContext(), now(), location, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": featured})
}

// Leaderboard ranks businesses in a campaign.
func (h *CampaignHandler) Leaderboard(c *fiber.Ctx) error {
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.leaderboard.Top(c.UserContext(), campaignID, c.QueryInt("limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": entries})
}

type campaignRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"start_date"`
	EndsAt      time.Time `json:"end_date"`
	Status      string    `json:"status"`
}

// CreateCampaign creates a campaign. Admin only.
func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req campaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status := models.CampaignStatus(req.Status)
	if status == "" {
		status = models.CampaignDraft
	}
	switch {
	case strings.TrimSpace(req.Name) == "":
		return apperr.New(apperr.CodeValidationFailed, "Campaign name is required")
	case req.StartsAt.IsZero() || !req.EndsAt.After(req.StartsAt):
		return apperr.New(apperr.CodeValidationFailed, "End date must be after start date")
	case !status.Valid():
		return apperr.New(apperr.CodeValidationFailed, "Invalid campaign status")
	}

	campaign := models.Campaign{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		Status:      status,
	}
	if account, ok := middleware.GetCurrentAccount(c); ok {
		campaign.CreatedByID = &account.ID
	}

	if err := h.campaigns.CreateCampaign(c.UserContext(), &campaign); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": campaign})
}

type actionRequest struct {
	ActionType   string `json:"action_type"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Points       int    `json:"points"`
	DisplayOrder int    `json:"order"`
}

// AddAction adds an action to a campaign. Admin only.
func (h *CampaignHandler) AddAction(c *fiber.Ctx) error {
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	actionType := models.ActionType(req.ActionType)
	switch {
	case !actionType.Valid():
		return apperr.New(apperr.CodeValidationFailed, "Unknown action type")
	case req.Points <= 0:
		return apperr.New(apperr.CodeValidationFailed, "Points must be positive")
	}

	if _, err := h.campaigns.FindCampaign(c.UserContext(), campaignID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Campaign not found")
		}
		return err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = string(actionType)
	}
	action := models.CampaignAction{
		CampaignID:   campaignID,
		ActionType:   actionType,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Points:       req.Points,
		DisplayOrder: req.DisplayOrder,
	}
	if err := h.campaigns.AddAction(c.UserContext(), &action); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperr.New(apperr.CodeValidationFailed, "Campaign already has an action of this type")
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": action})
}

type rewardRequest struct {
	Type           string `json:"reward_type"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	RequiredPoints int    `json:"required_points"`
	IconURL        string `json:"icon"`
	DurationDays   *int   `json:"duration_days"`
}

// AddReward adds a reward to a campaign. Admin only.
func (h *CampaignHandler) AddReward(c *fiber.Ctx) error {
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req rewardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	rewardType := models.RewardType(req.Type)
	switch {
	case !rewardType.Valid():
		return apperr.New(apperr.CodeValidationFailed, "Unknown reward type")
	case strings.TrimSpace(req.Name) == "":
		return apperr.New(apperr.CodeValidationFailed, "Reward name is required")
	case req.RequiredPoints <= 0:
		return apperr.New(apperr.CodeValidationFailed, "Required points must be positive")
	case req.DurationDays != nil && *req.DurationDays <= 0:
		return apperr.New(apperr.CodeValidationFailed, "Duration must be positive")
	}

	if _, err := h.campaigns.FindCampaign(c.UserContext(), campaignID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Campaign not found")
		}
		return err
	}

	reward := models.Reward{
		CampaignID:     campaignID,
		Type:           rewardType,
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		RequiredPoints: req.RequiredPoints,
		IconURL:        strings.TrimSpace(req.IconURL),
		DurationDays:   req.DurationDays,
	}
	if err := h.campaigns.AddReward(c.UserContext(), &reward); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": reward})
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus changes a campaign's status. Admin only.
func (h *CampaignHandler) SetStatus(c *fiber.Ctx) error {
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	status := models.CampaignStatus(req.Status)
	if !status.Valid() {
		return apperr.New(apperr.CodeValidationFailed, "Invalid campaign status")
	}

	if err := h.campaigns.SetStatus(c.UserContext(), campaignID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Campaign not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "status": status})
}
