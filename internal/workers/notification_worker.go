package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
)

// EventSource is the consumer side of the campaign event stream.
type EventSource interface {
	CreateConsumerGroup(ctx context.Context, groupName string) error
	Consume(ctx context.Context, groupName, consumerName string, blockTime time.Duration) (*common.Event, string, error)
	Ack(ctx context.Context, groupName, messageID string) error
	ClaimStale(ctx context.Context, groupName, consumerName string, minIdleTime time.Duration) ([]*common.Event, []string, error)
}

// NotificationWorker drains the event stream through a consumer group and
// hands every event to a Notifier.
type NotificationWorker struct {
	workerID   string
	group      string
	source     EventSource
	notifier   Notifier
	metrics    *metrics.MetricsRegistry
	blockTime  time.Duration
	staleAfter time.Duration
	claimEvery time.Duration
}

func NewNotificationWorker(workerID, group string, source EventSource, notifier Notifier, metricsReg *metrics.MetricsRegistry) *NotificationWorker {
	return &NotificationWorker{
		workerID:   workerID,
		group:      group,
		source:     source,
		notifier:   notifier,
		metrics:    metricsReg,
		blockTime:  5 * time.Second,
		staleAfter: 5 * time.Minute,
		claimEvery: 2 * time.Minute,
	}
}

// Start runs numWorkers consumers plus the stale-message claimer and blocks
// until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context, numWorkers int) error {
	if err := w.source.CreateConsumerGroup(ctx, w.group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	logging.Info("Starting notification workers", "workers", numWorkers, "group", w.group)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			w.processQueue(ctx, name)
		}(fmt.Sprintf("%s-%d", w.workerID, i))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.claimStaleMessages(ctx)
	}()

	wg.Wait()
	logging.Info("All notification workers stopped")
	return nil
}

func (w *NotificationWorker) processQueue(ctx context.Context, consumer string) {
	processed, failed := 0, 0
	for {
		select {
		case <-ctx.Done():
			logging.Info("Notification worker shutting down", "consumer", consumer, "processed", processed, "failed", failed)
			return
		default:
		}

		event, messageID, err := w.source.Consume(ctx, w.group, consumer, w.blockTime)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logging.Warn("Failed to read event", "consumer", consumer, "error", err)
			if messageID != "" {
				// Undecodable payloads would otherwise stay pending forever.
				w.ack(ctx, messageID)
				continue
			}
			sleep(ctx, time.Second)
			continue
		}
		if event == nil {
			continue
		}

		if w.handle(ctx, event) {
			processed++
		} else {
			failed++
		}
		w.ack(ctx, messageID)
	}
}

// handle delivers one event. Failed deliveries are still acknowledged.
func (w *NotificationWorker) handle(ctx context.Context, event *common.Event) bool {
	outcome := "delivered"
	err := w.notifier.Notify(ctx, event)
	if err != nil {
		outcome = "failed"
		logging.Error("Notification failed", "event_id", event.ID, "event_type", event.Type, "error", err)
	}
	if w.metrics != nil {
		w.metrics.NotificationEventsTotal.WithLabelValues(string(event.Type), outcome).Inc()
	}
	return err == nil
}

func (w *NotificationWorker) ack(ctx context.Context, messageID string) {
	if err := w.source.Ack(ctx, w.group, messageID); err != nil {
		logging.Warn("Failed to ack event", "message_id", messageID, "error", err)
	}
}

// claimStaleMessages periodically takes over events left pending by
// consumers that died mid-delivery.
func (w *NotificationWorker) claimStaleMessages(ctx context.Context) {
	ticker := time.NewTicker(w.claimEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.claimOnce(ctx)
		}
	}
}

func (w *NotificationWorker) claimOnce(ctx context.Context) int {
	events, messageIDs, err := w.source.ClaimStale(ctx, w.group, w.workerID+"-claimer", w.staleAfter)
	if err != nil {
		logging.Warn("Failed to claim stale events", "error", err)
		return 0
	}
	for i, event := range events {
		w.handle(ctx, event)
		w.ack(ctx, messageIDs[i])
	}
	if len(events) > 0 {
		logging.Info("Reprocessed stale events", "count", len(events))
	}
	return len(events)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
