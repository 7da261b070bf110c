package workers

import (
	"context"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
)

type WorkersContainer struct {
	Notifications *NotificationWorker
	Monitor       *EventStreamMonitor
}

// InitWorkers starts the notification consumers over the Redis event
// stream. Without a stream there is nothing to consume and nil is returned.
func InitWorkers(ctx context.Context, stream *common.RedisEventStream, numWorkers int) *WorkersContainer {
	if stream == nil {
		logging.Info("Event stream disabled, notification workers not started")
		return nil
	}

	worker := NewNotificationWorker("notifier", constants.EventConsumerGroup, stream, LogNotifier{}, metrics.Get())
	monitor := NewEventStreamMonitor(stream, constants.EventConsumerGroup, 100000)

	go func() {
		if err := worker.Start(ctx, numWorkers); err != nil {
			logging.Error("Notification workers failed to start", "error", err)
		}
	}()
	go monitor.Start(ctx, 30*time.Second)

	return &WorkersContainer{Notifications: worker, Monitor: monitor}
}
