package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	contractsv1 "adshift/contracts/gen/events/v1"

	"go.uber.org/goleak"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan contractsv1.Envelope, 1)
	stopped := make(chan struct{})
	err = bus.Subscribe(ctx, "adset.run_state_changed", "audit-cg", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := contractsv1.Envelope{
		EventID:      "evt-1",
		EventType:    "adset.run_state_changed",
		PartitionKey: "as-1",
		Data:         json.RawMessage(`{"adset_id":"as-1"}`),
	}
	if err := bus.Publish(ctx, event.EventType, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != "evt-1" || got.PartitionKey != "as-1" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}

	cancel()
	go func() {
		for {
			bus.mu.RLock()
			remaining := len(bus.subscribers["adset.run_state_changed"])
			bus.mu.RUnlock()
			if remaining == 0 {
				close(stopped)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber not removed after cancel")
	}
}
