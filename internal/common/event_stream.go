package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is a notification emitted after a committed state change.
type Event struct {
	ID         string              `json:"id"`
	Type       constants.EventType `json:"type"`
	CampaignID string              `json:"campaign_id"`
	EntityID   string              `json:"entity_id"`
	Payload    map[string]string   `json:"payload,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func NewEvent(eventType constants.EventType, campaignID, entityID string, payload map[string]string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CampaignID: campaignID,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// EventPublisher hands events to whatever delivers notifications.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// LogEventPublisher only logs events. Used when Redis is disabled.
type LogEventPublisher struct{}

func (LogEventPublisher) Publish(_ context.Context, event *Event) error {
	logging.Info("Event published",
		"event_type", event.Type,
		"campaign_id", event.CampaignID,
		"entity_id", event.EntityID,
	)
	return nil
}

// RedisEventStream provides the event queue using Redis Streams
type RedisEventStream struct {
	client *redis.Client
	stream string
}

var _ EventPublisher = (*RedisEventStream)(nil)

func NewRedisEventStream(client *redis.Client, stream string) *RedisEventStream {
	return &RedisEventStream{client: client, stream: stream}
}

// Publish appends the event to the stream
func (s *RedisEventStream) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// XADD stream * data <json>
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}
	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// Consume reads one event for the consumer group. Returns a nil event when
// the block time elapsed without messages.
func (s *RedisEventStream) Consume(ctx context.Context, groupName, consumerName string, blockTime time.Duration) (*Event, string, error) {
	args := &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: consumerName,
		Streams:  []string{s.stream, ">"}, // ">" means new messages only
		Count:    1,
		Block:    blockTime,
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, "", nil
	}

	msg := streams[0].Messages[0]
	event, err := decodeEvent(msg)
	if err != nil {
		// Returned with its id so the caller can ack the poison message.
		return nil, msg.ID, err
	}
	return event, msg.ID, nil
}

func decodeEvent(msg redis.XMessage) (*Event, error) {
	dataStr, ok := msg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format: data field missing")
	}

	var event Event
	if err := json.Unmarshal([]byte(dataStr), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// Ack acknowledges successful processing of a message
func (s *RedisEventStream) Ack(ctx context.Context, groupName, messageID string) error {
	return s.client.XAck(ctx, s.stream, groupName, messageID).Err()
}

// CreateConsumerGroup creates a consumer group for the stream if it doesn't exist
func (s *RedisEventStream) CreateConsumerGroup(ctx context.Context, groupName string) error {
	// XGROUP CREATE stream group 0 MKSTREAM
	err := s.client.XGroupCreateMkStream(ctx, s.stream, groupName, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// PendingCount returns the number of unacknowledged messages for a group
func (s *RedisEventStream) PendingCount(ctx context.Context, groupName string) (int64, error) {
	pending, err := s.client.XPending(ctx, s.stream, groupName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return pending.Count, nil
}

// Trim keeps only the most recent maxLen messages
func (s *RedisEventStream) Trim(ctx context.Context, maxLen int64) error {
	return s.client.XTrimMaxLen(ctx, s.stream, maxLen).Err()
}

// ClaimStale takes over messages left pending by dead consumers.
func (s *RedisEventStream) ClaimStale(ctx context.Context, groupName, consumerName string, minIdleTime time.Duration) ([]*Event, []string, error) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  groupName,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	var staleIDs []string
	for _, p := range pending {
		if p.Idle >= minIdleTime {
			staleIDs = append(staleIDs, p.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil, nil, nil
	}

	messages, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.stream,
		Group:    groupName,
		Consumer: consumerName,
		MinIdle:  minIdleTime,
		Messages: staleIDs,
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to claim stale messages: %w", err)
	}

	var events []*Event
	var messageIDs []string
	for _, msg := range messages {
		event, err := decodeEvent(msg)
		if err != nil {
			logging.Warn("Dropping undecodable claimed event", "message_id", msg.ID, "error", err.Error())
			continue
		}
		events = append(events, event)
		messageIDs = append(messageIDs, msg.ID)
	}
	return events, messageIDs, nil
}
