// Package heartbeat publishes a periodic liveness message so a bench
// listener can tell a quiet box from a wedged one.
package heartbeat

import (
	"context"
	"time"

	"tltb-go/bus"
)

var (
	topicHeartbeat       = bus.Topic{"tltb", "heartbeat"}
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
)

// Beat is the published payload.
type Beat struct {
	UptimeS uint32 `json:"uptime_s"`
	Seq     uint32 `json:"seq"`
}

type Service struct {
	interval time.Duration
}

func NewService() *Service {
	return &Service{interval: 5 * time.Second}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	start := time.Now()
	var seq uint32

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(topicHeartbeat, Beat{
				UptimeS: uint32(time.Since(start) / time.Second),
				Seq:     seq,
			}, true))
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_s"].(float64); ok && iv >= 1 {
					s.interval = time.Duration(iv) * time.Second
					tick.Reset(s.interval)
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
