package workers

import (
	"context"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/logging"
)

// Notifier delivers one event to its audience.
type Notifier interface {
	Notify(ctx context.Context, event *common.Event) error
}

// LogNotifier records events in the log instead of sending them.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event *common.Event) error {
	logging.WithOperation("notify").Infow("Notification",
		"event_id", event.ID,
		"event_type", event.Type,
		"campaign_id", event.CampaignID,
		"entity_id", event.EntityID,
		"payload", event.Payload,
	)
	return nil
}
