// Package campaign awards campaign points and rewards as businesses improve
// their profiles.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/faithconnect/internal/events"
	"github.com/example/faithconnect/internal/metrics"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/services"
)

// Featured placements earned through a campaign.
const (
	featuredPriority    = 5
	featuredOnHomepage  = true
	featuredInDirectory = true
	featuredInCategory  = false
)

// Store is the persistence the engine needs. Uniqueness of awards is
// enforced by the store, so concurrent runs are safe.
type Store interface {
	Snapshot(ctx context.Context, businessID uuid.UUID) (models.BusinessSnapshot, error)
	ActiveCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error)
	EnsureProgress(ctx context.Context, businessID, campaignID uuid.UUID, now time.Time) (*models.BusinessCampaignProgress, bool, error)
	CompletedActionIDs(ctx context.Context, progressID uuid.UUID) (map[uuid.UUID]bool, error)
	AwardAction(ctx context.Context, completed *models.CompletedAction) (bool, int, error)
	AwardedRewardIDs(ctx context.Context, businessID uuid.UUID) (map[uuid.UUID]bool, error)
	GrantReward(ctx context.Context, award *models.AwardedReward, featured *models.FeaturedBusiness) (bool, error)
	MarkProgressCompleted(ctx context.Context, progressID uuid.UUID, at time.Time) error
}

// Notifier delivers owner notifications.
type Notifier interface {
	Notify(ctx context.Context, notice services.Notice) error
}

// FeaturedAlerter tells admins about earned featured placements.
type FeaturedAlerter interface {
	NotifyFeaturedGrant(ctx context.Context, alert services.FeaturedAlert) error
}

// Engine evaluates campaign progress for businesses.
type Engine struct {
	store     Store
	notifier  Notifier
	publisher events.Publisher
	alerter   FeaturedAlerter
	now       func() time.Time
}

// NewEngine creates an Engine. alerter may be nil.
func NewEngine(store Store, notifier Notifier, publisher events.Publisher, alerter FeaturedAlerter) *Engine {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Engine{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		alerter:   alerter,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ActionAward describes one newly awarded action.
type ActionAward struct {
	CampaignID   uuid.UUID
	ActionID     uuid.UUID
	ActionType   models.ActionType
	Points       int
	PointsEarned int
}

// RewardGrant describes one newly unlocked reward.
type RewardGrant struct {
	CampaignID uuid.UUID
	RewardID   uuid.UUID
	Type       models.RewardType
	ExpiresAt  *time.Time
	Featured   bool
}

// Outcome summarises what one evaluation changed.
type Outcome struct {
	Enrolled  []uuid.UUID
	Awarded   []ActionAward
	Granted   []RewardGrant
	Completed []uuid.UUID
}

// Changed reports whether the evaluation wrote anything.
func (o Outcome) Changed() bool {
	return len(o.Enrolled)+len(o.Awarded)+len(o.Granted)+len(o.Completed) > 0
}

// OnBusinessStateChanged is the post-commit hook for business mutations.
// It never fails the caller: errors and panics are logged and counted.
func (e *Engine) OnBusinessStateChanged(ctx context.Context, businessID uuid.UUID) {
	start := time.Now()
	status := "success"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			log.Printf("[Campaign] panic evaluating business %s: %v", businessID, r)
		}
		metrics.RecordEvaluationDuration(status, time.Since(start).Seconds())
	}()

	outcome, err := e.Evaluate(ctx, businessID)
	if err != nil {
		status = "failure"
		log.Printf("[Campaign] evaluate business %s: %v", businessID, err)
	}
	if outcome.Changed() {
		log.Printf("[Campaign] business %s: enrolled=%d awarded=%d rewards=%d completed=%d",
			businessID, len(outcome.Enrolled), len(outcome.Awarded), len(outcome.Granted), len(outcome.Completed))
	}
}

// Evaluate runs every active campaign against the business once. A failing
// campaign does not stop the others; their errors are joined.
func (e *Engine) Evaluate(ctx context.Context, businessID uuid.UUID) (Outcome, error) {
	var outcome Outcome
	now := e.now()

	snap, err := e.store.Snapshot(ctx, businessID)
	if err != nil {
		return outcome, fmt.Errorf("load business: %w", err)
	}

	campaigns, err := e.store.ActiveCampaigns(ctx, now)
	if err != nil {
		return outcome, fmt.Errorf("load campaigns: %w", err)
	}

	var errs []error
	for i := range campaigns {
		c := campaigns[i]
		if !c.IsActive(now) {
			continue
		}
		if err := e.evaluateCampaign(ctx, snap, c, now, &outcome); err != nil {
			errs = append(errs, fmt.Errorf("campaign %s: %w", c.ID, err))
		}
	}
	return outcome, errors.Join(errs...)
}

// pass holds the state of one business in one campaign during a run.
type pass struct {
	snap     models.BusinessSnapshot
	campaign models.Campaign
	progress *models.BusinessCampaignProgress
	points   int
	held     map[uuid.UUID]bool
	now      time.Time
}

func (e *Engine) evaluateCampaign(ctx context.Context, snap models.BusinessSnapshot, c models.Campaign, now time.Time, outcome *Outcome) error {
	businessID := snap.Business.ID

	progress, created, err := e.store.EnsureProgress(ctx, businessID, c.ID, now)
	if err != nil {
		return fmt.Errorf("ensure progress: %w", err)
	}
	if created {
		outcome.Enrolled = append(outcome.Enrolled, c.ID)
	}

	done, err := e.store.CompletedActionIDs(ctx, progress.ID)
	if err != nil {
		return fmt.Errorf("completed actions: %w", err)
	}
	held, err := e.store.AwardedRewardIDs(ctx, businessID)
	if err != nil {
		return fmt.Errorf("awarded rewards: %w", err)
	}

	p := &pass{snap: snap, campaign: c, progress: progress, points: progress.PointsEarned, held: held, now: now}

	for _, action := range sortedActions(c.Actions) {
		if done[action.ID] {
			continue
		}
		ok, err := Satisfies(snap, action.ActionType)
		if err != nil {
			log.Printf("[Campaign] skipping action %s in campaign %s: %v", action.ID, c.ID, err)
			continue
		}
		if !ok {
			continue
		}

		awarded, points, err := e.store.AwardAction(ctx, &models.CompletedAction{
			ProgressID:   progress.ID,
			ActionID:     action.ID,
			PointsEarned: action.Points,
			CompletedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("award %s: %w", action.ActionType, err)
		}
		done[action.ID] = true
		p.points = points

		if awarded {
			award := ActionAward{
				CampaignID:   c.ID,
				ActionID:     action.ID,
				ActionType:   action.ActionType,
				Points:       action.Points,
				PointsEarned: points,
			}
			outcome.Awarded = append(outcome.Awarded, award)
			metrics.RecordActionAwarded(string(action.ActionType))
			e.announceAction(ctx, p, action, points)
		}

		e.cascade(ctx, p, outcome)
	}

	e.cascade(ctx, p, outcome)

	if !progress.Completed && allDone(c.Actions, done) {
		if err := e.store.MarkProgressCompleted(ctx, progress.ID, now); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		outcome.Completed = append(outcome.Completed, c.ID)
	}
	return nil
}

// cascade unlocks every reward the current points reach. A failed grant is
// logged and the scan carries on.
func (e *Engine) cascade(ctx context.Context, p *pass, outcome *Outcome) {
	for _, reward := range sortedRewards(p.campaign.Rewards) {
		if p.held[reward.ID] || p.points < reward.RequiredPoints {
			continue
		}

		award := &models.AwardedReward{
			BusinessID: p.snap.Business.ID,
			RewardID:   reward.ID,
			ProgressID: p.progress.ID,
			AwardedAt:  p.now,
			IsActive:   true,
		}
		var featured *models.FeaturedBusiness
		if reward.DurationDays != nil && *reward.DurationDays > 0 {
			expires := p.now.AddDate(0, 0, *reward.DurationDays)
			award.ExpiresAt = &expires
			if reward.Type == models.RewardFeatured {
				campaignID := p.campaign.ID
				featured = &models.FeaturedBusiness{
					BusinessID:  p.snap.Business.ID,
					StartsAt:    p.now,
					EndsAt:      expires,
					Priority:    featuredPriority,
					OnHomepage:  featuredOnHomepage,
					InDirectory: featuredInDirectory,
					InCategory:  featuredInCategory,
					CampaignID:  &campaignID,
					Reason:      models.FeaturedReason(p.campaign.Name),
				}
			}
		}

		granted, err := e.store.GrantReward(ctx, award, featured)
		if err != nil {
			log.Printf("[Campaign] grant reward %s to business %s: %v", reward.ID, p.snap.Business.ID, err)
			continue
		}
		p.held[reward.ID] = true
		if !granted {
			continue
		}

		outcome.Granted = append(outcome.Granted, RewardGrant{
			CampaignID: p.campaign.ID,
			RewardID:   reward.ID,
			Type:       reward.Type,
			ExpiresAt:  award.ExpiresAt,
			Featured:   featured != nil,
		})
		metrics.RecordRewardGranted(string(reward.Type))
		e.announceReward(ctx, p, reward, award, featured)
	}
}

func allDone(actions []models.CampaignAction, done map[uuid.UUID]bool) bool {
	if len(actions) == 0 {
		return false
	}
	for _, a := range actions {
		if !done[a.ID] {
			return false
		}
	}
	return true
}

func sortedActions(actions []models.CampaignAction) []models.CampaignAction {
	sorted := append([]models.CampaignAction(nil), actions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return sorted
}

func sortedRewards(rewards []models.Reward) []models.Reward {
	sorted := append([]models.Reward(nil), rewards...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RequiredPoints < sorted[j].RequiredPoints
	})
	return sorted
}
