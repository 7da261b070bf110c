package services

import (
	"context"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
	gormModels "chamberhub/campaigns/internal/models/gorm"
)

// publish hands committed events to the publisher. Delivery failures are
// logged and never fail the operation that produced them.
func publish(ctx context.Context, publisher common.EventPublisher, events ...*common.Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		outcome := "published"
		if err := publisher.Publish(ctx, event); err != nil {
			outcome = "failed"
			logging.Warn("Failed to publish event",
				"event_type", event.Type,
				"entity_id", event.EntityID,
				"error", err.Error(),
			)
		}
		metrics.Get().NotificationEventsTotal.WithLabelValues(string(event.Type), outcome).Inc()
	}
}

func rewardEvents(campaignID string, rewards []gormModels.Reward) []*common.Event {
	events := make([]*common.Event, 0, len(rewards))
	for _, r := range rewards {
		events = append(events, common.NewEvent(constants.EventRewardEarned, campaignID, r.ID, map[string]string{
			"user_campaign_id": r.UserCampaignID,
			"incentive_id":     r.IncentiveID,
			"incentive_name":   r.Incentive.Name,
		}))
	}
	return events
}

// StatsInvalidator drops cached inventory figures after catalogue or
// inventory writes.
type StatsInvalidator interface {
	Invalidate(campaignID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string) {}
