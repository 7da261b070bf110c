package workers

import (
	"context"
	"time"

	"chamberhub/campaigns/internal/logging"
)

// StreamStats is the subset of the event stream the monitor needs.
type StreamStats interface {
	PendingCount(ctx context.Context, groupName string) (int64, error)
	Trim(ctx context.Context, maxLen int64) error
}

// EventStreamMonitor logs consumer lag and caps the stream length.
type EventStreamMonitor struct {
	stream StreamStats
	group  string
	maxLen int64
}

func NewEventStreamMonitor(stream StreamStats, group string, maxLen int64) *EventStreamMonitor {
	return &EventStreamMonitor{stream: stream, group: group, maxLen: maxLen}
}

// Start checks the stream on every tick until ctx is cancelled.
func (m *EventStreamMonitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Event stream monitor shutting down")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *EventStreamMonitor) check(ctx context.Context) {
	pending, err := m.stream.PendingCount(ctx, m.group)
	if err != nil {
		logging.Warn("Failed to read pending events", "group", m.group, "error", err)
		return
	}
	if pending > 0 {
		logging.Info("Event stream backlog", "group", m.group, "pending", pending)
	}

	if err := m.stream.Trim(ctx, m.maxLen); err != nil {
		logging.Warn("Failed to trim event stream", "error", err)
	}
}
