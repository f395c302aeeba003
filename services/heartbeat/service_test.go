package heartbeat

import (
	"context"
	"testing"
	"time"

	"tltb-go/bus"
)

func TestHeartbeatPublishesAfterConfig(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test-heartbeat")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewService()
	if err := svc.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("start: %v", err)
	}

	sub := conn.Subscribe(topicHeartbeat)
	defer conn.Unsubscribe(sub)

	// Drop the interval so the test does not sit out the default.
	conn.Publish(conn.NewMessage(topicConfigHeartbeat,
		map[string]any{"interval_s": float64(1)}, false))

	select {
	case msg := <-sub.Channel():
		beat, ok := msg.Payload.(Beat)
		if !ok {
			t.Fatalf("payload type %T, want Beat", msg.Payload)
		}
		if beat.Seq == 0 {
			t.Fatalf("beat.Seq = 0, want >= 1")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no heartbeat within 3s")
	}
}
