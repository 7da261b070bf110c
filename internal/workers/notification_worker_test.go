package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/metrics"

	"github.com/stretchr/testify/require"
)

type queued struct {
	event *common.Event
	id    string
	err   error
}

type fakeSource struct {
	mu       sync.Mutex
	queue    []queued
	stale    []queued
	acked    []string
	groups   []string
	groupErr error
}

func (s *fakeSource) CreateConsumerGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, group)
	return s.groupErr
}

func (s *fakeSource) Consume(ctx context.Context, _, _ string, block time.Duration) (*common.Event, string, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return next.event, next.id, next.err
	}
	s.mu.Unlock()
	sleep(ctx, 5*time.Millisecond)
	return nil, "", nil
}

func (s *fakeSource) Ack(_ context.Context, _, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, id)
	return nil
}

func (s *fakeSource) ClaimStale(_ context.Context, _, _ string, _ time.Duration) ([]*common.Event, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []*common.Event
	var ids []string
	for _, q := range s.stale {
		events = append(events, q.event)
		ids = append(ids, q.id)
	}
	s.stale = nil
	return events, ids, nil
}

func (s *fakeSource) ackedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	seen   []string
	failOn string
}

func (n *recordingNotifier) Notify(_ context.Context, event *common.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, event.EntityID)
	if event.EntityID == n.failOn {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *recordingNotifier) seenIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.seen...)
}

func newTestWorker(source EventSource, notifier Notifier) *NotificationWorker {
	w := NewNotificationWorker("test", constants.EventConsumerGroup, source, notifier, metrics.Get())
	w.blockTime = 5 * time.Millisecond
	w.claimEvery = time.Hour
	return w
}

func TestNotificationWorkerDeliversAndAcks(t *testing.T) {
	source := &fakeSource{queue: []queued{
		{event: common.NewEvent(constants.EventContractSent, "camp", "c1", nil), id: "1-0"},
		{event: common.NewEvent(constants.EventContractSigned, "camp", "c2", nil), id: "2-0"},
		{event: common.NewEvent(constants.EventRewardEarned, "camp", "r1", nil), id: "3-0"},
	}}
	notifier := &recordingNotifier{failOn: "c2"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWorker(source, notifier).Start(ctx, 1) }()

	require.Eventually(t, func() bool { return len(source.ackedIDs()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []string{"c1", "c2", "r1"}, notifier.seenIDs())
	// A failed delivery is still acknowledged.
	require.Equal(t, []string{"1-0", "2-0", "3-0"}, source.ackedIDs())
	require.Equal(t, []string{constants.EventConsumerGroup}, source.groups)
}

func TestNotificationWorkerAcksUndecodableMessages(t *testing.T) {
	source := &fakeSource{queue: []queued{
		{id: "9-0", err: errors.New("failed to unmarshal event")},
	}}
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWorker(source, notifier).Start(ctx, 2) }()

	require.Eventually(t, func() bool { return len(source.ackedIDs()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Empty(t, notifier.seenIDs())
}

func TestNotificationWorkerFailsWithoutGroup(t *testing.T) {
	source := &fakeSource{groupErr: errors.New("NOAUTH")}
	err := newTestWorker(source, LogNotifier{}).Start(context.Background(), 1)
	require.Error(t, err)
}

func TestClaimOnceRedeliversStaleEvents(t *testing.T) {
	source := &fakeSource{stale: []queued{
		{event: common.NewEvent(constants.EventContractApproved, "camp", "c7", nil), id: "7-0"},
	}}
	notifier := &recordingNotifier{}
	w := newTestWorker(source, notifier)

	require.Equal(t, 1, w.claimOnce(context.Background()))
	require.Equal(t, []string{"c7"}, notifier.seenIDs())
	require.Equal(t, []string{"7-0"}, source.ackedIDs())

	require.Zero(t, w.claimOnce(context.Background()))
}
