package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/faithconnect/internal/models"
)

// CampaignRepository stores campaigns and per-business progress.
type CampaignRepository struct {
	db         *gorm.DB
	businesses *BusinessRepository
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db, businesses: NewBusinessRepository(db)}
}

// Snapshot loads the business state campaign actions are checked against.
func (r *CampaignRepository) Snapshot(ctx context.Context, businessID uuid.UUID) (models.BusinessSnapshot, error) {
	return r.businesses.Snapshot(ctx, businessID)
}

func orderedActions(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC, created_at ASC, id ASC")
}

func orderedRewards(db *gorm.DB) *gorm.DB {
	return db.Order("required_points ASC, created_at ASC, id ASC")
}

// ActiveCampaigns returns campaigns running at now with actions and rewards loaded.
func (r *CampaignRepository) ActiveCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Preload("Actions", orderedActions).
		Preload("Rewards", orderedRewards).
		Where("status = ? AND starts_at <= ? AND ends_at > ?", models.CampaignActive, now, now).
		Order("starts_at ASC, id ASC").
		Find(&campaigns).Error
	return campaigns, err
}

// FindCampaign loads one campaign with actions and rewards.
func (r *CampaignRepository) FindCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Preload("Actions", orderedActions).
		Preload("Rewards", orderedRewards).
		First(&campaign, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &campaign, nil
}

// FindCampaignByName loads a campaign by its exact name.
func (r *CampaignRepository) FindCampaignByName(ctx context.Context, name string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&campaign).Error; err != nil {
		return nil, notFound(err)
	}
	return &campaign, nil
}

// CreateCampaign inserts a campaign together with any nested actions and rewards.
func (r *CampaignRepository) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	campaign.TotalPointsAvailable = campaign.SumActionPoints()
	err := r.db.WithContext(ctx).Create(campaign).Error
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// AddAction inserts an action and recomputes the campaign's total points.
func (r *CampaignRepository) AddAction(ctx context.Context, action *models.CampaignAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			return err
		}
		return recomputeTotalPoints(tx, action.CampaignID)
	})
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func recomputeTotalPoints(tx *gorm.DB, campaignID uuid.UUID) error {
	var total int64
	if err := tx.Model(&models.CampaignAction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("campaign_id = ?", campaignID).
		Scan(&total).Error; err != nil {
		return err
	}
	return tx.Model(&models.Campaign{}).Where("id = ?", campaignID).Update("total_points_available", total).Error
}

// AddReward inserts a reward.
func (r *CampaignRepository) AddReward(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

// SetStatus changes a campaign's status.
func (r *CampaignRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.CampaignStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureProgress returns the progress row for (business, campaign), creating it
// and counting the participant on first sight. created is true only for the
// call that inserted the row.
func (r *CampaignRepository) EnsureProgress(ctx context.Context, businessID, campaignID uuid.UUID, now time.Time) (*models.BusinessCampaignProgress, bool, error) {
	if progress, err := r.findProgress(ctx, businessID, campaignID); err == nil {
		return progress, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	progress := &models.BusinessCampaignProgress{
		BusinessID:     businessID,
		CampaignID:     campaignID,
		EnrolledAt:     now,
		LastActivityAt: now,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(progress).Error; err != nil {
			return err
		}
		return tx.Model(&models.Campaign{}).Where("id = ?", campaignID).
			UpdateColumn("participants_count", gorm.Expr("participants_count + ?", 1)).Error
	})
	if err == nil {
		return progress, true, nil
	}
	if !isDuplicate(err) {
		return nil, false, err
	}

	existing, err := r.findProgress(ctx, businessID, campaignID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *CampaignRepository) findProgress(ctx context.Context, businessID, campaignID uuid.UUID) (*models.BusinessCampaignProgress, error) {
	var progress models.BusinessCampaignProgress
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND campaign_id = ?", businessID, campaignID).
		First(&progress).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &progress, nil
}

// ProgressWithActions loads progress and its completed actions.
func (r *CampaignRepository) ProgressWithActions(ctx context.Context, progressID uuid.UUID) (*models.BusinessCampaignProgress, error) {
	var progress models.BusinessCampaignProgress
	err := r.db.WithContext(ctx).
		Preload("CompletedActions", func(db *gorm.DB) *gorm.DB { return db.Order("completed_at ASC") }).
		First(&progress, "id = ?", progressID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &progress, nil
}

// CompletedActionIDs returns the set of actions already awarded on a progress row.
func (r *CampaignRepository) CompletedActionIDs(ctx context.Context, progressID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []models.CompletedAction
	if err := r.db.WithContext(ctx).Select("action_id").Where("progress_id = ?", progressID).Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		ids[row.ActionID] = true
	}
	return ids, nil
}

// AwardAction records completed and adds its points in one transaction.
// If the action was already awarded it returns awarded=false and the current
// points without changing anything.
func (r *CampaignRepository) AwardAction(ctx context.Context, completed *models.CompletedAction) (bool, int, error) {
	var points int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(completed).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.BusinessCampaignProgress{}).Where("id = ?", completed.ProgressID).
			Updates(map[string]interface{}{
				"points_earned":    gorm.Expr("points_earned + ?", completed.PointsEarned),
				"last_activity_at": completed.CompletedAt,
			}).Error; err != nil {
			return err
		}
		var progress models.BusinessCampaignProgress
		if err := tx.Select("points_earned").First(&progress, "id = ?", completed.ProgressID).Error; err != nil {
			return err
		}
		points = progress.PointsEarned
		return nil
	})
	if err == nil {
		return true, points, nil
	}
	if !isDuplicate(err) {
		return false, 0, err
	}

	var progress models.BusinessCampaignProgress
	if err := r.db.WithContext(ctx).Select("points_earned").First(&progress, "id = ?", completed.ProgressID).Error; err != nil {
		return false, 0, notFound(err)
	}
	return false, progress.PointsEarned, nil
}

// AwardedRewardIDs returns the rewards a business already holds.
func (r *CampaignRepository) AwardedRewardIDs(ctx context.Context, businessID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []models.AwardedReward
	if err := r.db.WithContext(ctx).Select("reward_id").Where("business_id = ?", businessID).Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		ids[row.RewardID] = true
	}
	return ids, nil
}

// GrantReward stores award and, when given, its featured placement in one
// transaction. A reward the business already holds returns false.
func (r *CampaignRepository) GrantReward(ctx context.Context, award *models.AwardedReward, featured *models.FeaturedBusiness) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(award).Error; err != nil {
			return err
		}
		if featured != nil {
			return tx.Omit(clause.Associations).Create(featured).Error
		}
		return nil
	})
	if err == nil {
		return true, nil
	}
	if isDuplicate(err) {
		return false, nil
	}
	return false, err
}

// MarkProgressCompleted flags a progress row whose actions are all done.
func (r *CampaignRepository) MarkProgressCompleted(ctx context.Context, progressID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.BusinessCampaignProgress{}).
		Where("id = ? AND completed = ?", progressID, false).
		Updates(map[string]interface{}{"completed": true, "completed_at": at}).Error
}

// RewardsForBusiness lists active rewards a business has unlocked, newest first.
func (r *CampaignRepository) RewardsForBusiness(ctx context.Context, businessID uuid.UUID) ([]models.AwardedReward, error) {
	var awards []models.AwardedReward
	err := r.db.WithContext(ctx).
		Preload("Reward").
		Where("business_id = ? AND is_active = ?", businessID, true).
		Order("awarded_at DESC").
		Find(&awards).Error
	return awards, err
}

// FeaturedLocation selects where a featured listing is shown.
type FeaturedLocation string

const (
	FeaturedHomepage  FeaturedLocation = "homepage"
	FeaturedDirectory FeaturedLocation = "directory"
	FeaturedCategory  FeaturedLocation = "category"
)

// ActiveFeatured lists placements running at now for a location, highest priority first.
func (r *CampaignRepository) ActiveFeatured(ctx context.Context, now time.Time, location FeaturedLocation, limit int) ([]models.FeaturedBusiness, error) {
	query := r.db.WithContext(ctx).
		Preload("Business").
		Where("starts_at <= ? AND ends_at > ?", now, now).
		Order("priority DESC, starts_at DESC")

	switch location {
	case FeaturedHomepage:
		query = query.Where("on_homepage = ?", true)
	case FeaturedDirectory:
		query = query.Where("in_directory = ?", true)
	case FeaturedCategory:
		query = query.Where("in_category = ?", true)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var featured []models.FeaturedBusiness
	err := query.Find(&featured).Error
	return featured, err
}
