package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]Event
	sent    []int64
	failed  map[int64]string
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, _ int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = errMsg
	return nil
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []kafka.Message
	failKeys map[string]bool
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if p.failKeys[string(m.Key)] {
			return errors.New("broker unavailable")
		}
		p.messages = append(p.messages, m)
	}
	return nil
}

func runRelay(t *testing.T, store *fakeStore, producer *fakeProducer, d time.Duration) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "relay-test")
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, relay.Run(ctx))
}

func TestRelayPublishesAndMarksSent(t *testing.T) {
	store := &fakeStore{batches: [][]Event{{
		{ID: 1, AggregateID: "ord-1", Type: "OrderCreated", Payload: []byte(`{"a":1}`), Traceparent: "00-abc-def-01"},
		{ID: 2, AggregateID: "ord-2", Type: "OrderPaid", Payload: []byte(`{"b":2}`)},
	}}}
	producer := &fakeProducer{}

	runRelay(t, store, producer, 100*time.Millisecond)

	require.ElementsMatch(t, []int64{1, 2}, store.sent)
	require.Len(t, producer.messages, 2)

	first := producer.messages[0]
	require.Equal(t, "ord-1", string(first.Key))
	require.Equal(t, "order.events", first.Topic)

	headers := map[string]string{}
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "OrderCreated", headers["event_type"])
	require.Equal(t, "00-abc-def-01", headers["traceparent"])
}

func TestRelayMarksFailedAndKeepsGoing(t *testing.T) {
	store := &fakeStore{batches: [][]Event{{
		{ID: 1, AggregateID: "bad", Type: "OrderCreated"},
		{ID: 2, AggregateID: "good", Type: "OrderCreated"},
	}}}
	producer := &fakeProducer{failKeys: map[string]bool{"bad": true}}

	runRelay(t, store, producer, 100*time.Millisecond)

	require.Equal(t, []int64{2}, store.sent, "the good event is still sent")
	require.Contains(t, store.failed, int64(1))
	require.Equal(t, "broker unavailable", store.failed[1])
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	producer := &fakeProducer{}
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "t"), "relay-test")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
