package campaign

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/example/faithconnect/internal/events"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/services"
)

func (e *Engine) announceAction(ctx context.Context, p *pass, action models.CampaignAction, total int) {
	businessID := p.snap.Business.ID
	message := fmt.Sprintf("You earned %d points for \"%s\" in %s. Total: %d points.",
		action.Points, action.Name, p.campaign.Name, total)

	e.notify(ctx, services.Notice{
		Account:    p.snap.Owner,
		Category:   models.CategoryCampaign,
		Title:      "Campaign action completed",
		Message:    message,
		Link:       "/campaigns/" + p.campaign.ID.String(),
		BusinessID: &businessID,
		Data: map[string]interface{}{
			"campaign_id":   p.campaign.ID.String(),
			"action_type":   string(action.ActionType),
			"points":        action.Points,
			"points_earned": total,
		},
		SMS:          true,
		SMSText:      "Faith Connect: " + message,
		Email:        true,
		EmailSubject: "You earned campaign points",
		EmailHTML:    "<p>" + html.EscapeString(message) + "</p>",
	})

	e.publish(ctx, events.Event{
		Type:       events.TypeActionCompleted,
		BusinessID: businessID.String(),
		CampaignID: p.campaign.ID.String(),
		Payload: map[string]any{
			"action_id":     action.ID.String(),
			"action_type":   string(action.ActionType),
			"points":        action.Points,
			"points_earned": total,
		},
		OccurredAt: p.now,
	})
}

func (e *Engine) announceReward(ctx context.Context, p *pass, reward models.Reward, award *models.AwardedReward, featured *models.FeaturedBusiness) {
	businessID := p.snap.Business.ID
	message := fmt.Sprintf("You unlocked \"%s\" in %s.", reward.Name, p.campaign.Name)
	if award.ExpiresAt != nil {
		message += fmt.Sprintf(" Valid until %s.", award.ExpiresAt.Format("2 Jan 2006"))
	}

	e.notify(ctx, services.Notice{
		Account:    p.snap.Owner,
		Category:   models.CategoryCampaign,
		Title:      "Reward unlocked",
		Message:    message,
		Link:       "/rewards",
		BusinessID: &businessID,
		Data: map[string]interface{}{
			"campaign_id": p.campaign.ID.String(),
			"reward_id":   reward.ID.String(),
			"reward_type": string(reward.Type),
		},
		SMS:          true,
		SMSText:      "Faith Connect: " + message,
		Email:        true,
		EmailSubject: "You unlocked a reward",
		EmailHTML:    "<p>" + html.EscapeString(message) + "</p>",
	})

	payload := map[string]any{
		"reward_id":       reward.ID.String(),
		"reward_type":     string(reward.Type),
		"required_points": reward.RequiredPoints,
	}
	if award.ExpiresAt != nil {
		payload["expires_at"] = award.ExpiresAt
	}
	e.publish(ctx, events.Event{
		Type:       events.TypeRewardUnlocked,
		BusinessID: businessID.String(),
		CampaignID: p.campaign.ID.String(),
		Payload:    payload,
		OccurredAt: p.now,
	})

	if featured == nil {
		return
	}

	e.publish(ctx, events.Event{
		Type:       events.TypeFeaturedGranted,
		BusinessID: businessID.String(),
		CampaignID: p.campaign.ID.String(),
		Payload: map[string]any{
			"starts_at": featured.StartsAt,
			"ends_at":   featured.EndsAt,
			"priority":  featured.Priority,
		},
		OccurredAt: p.now,
	})

	if e.alerter != nil {
		alert := services.FeaturedAlert{
			BusinessName: p.snap.Business.Name,
			CampaignName: p.campaign.Name,
			RewardName:   reward.Name,
			EndsAt:       featured.EndsAt,
		}
		if err := e.alerter.NotifyFeaturedGrant(ctx, alert); err != nil {
			log.Printf("[Campaign] featured alert for business %s: %v", businessID, err)
		}
	}
}

func (e *Engine) notify(ctx context.Context, notice services.Notice) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, notice); err != nil {
		log.Printf("[Campaign] notify account %s: %v", notice.Account.ID, err)
	}
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.Printf("[Campaign] publish %s: %v", event.Type, err)
	}
}
