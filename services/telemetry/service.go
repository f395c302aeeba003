package telemetry

import (
	"context"
	"io"

	"tltb-go/bus"
	"tltb-go/types"
	"tltb-go/x/timex"
)

var topicTelemetry = bus.Topic{"tltb", "telemetry"}

// Service frames snapshots from the bus onto the bench link. The loop
// publishes every tick; the link only carries a frame when the minimum
// interval has passed, so a slow serial port never backpressures the
// control loop.
type Service struct {
	link       io.Writer
	minGapMs   uint32
	lastSentMs uint32
	sentAny    bool
}

// NewService writes frames to link at most once per minGapMs (0 selects
// the 100 ms production rate).
func NewService(link io.Writer, minGapMs uint32) *Service {
	if minGapMs == 0 {
		minGapMs = 100
	}
	return &Service{link: link, minGapMs: minGapMs}
}

func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicTelemetry)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			snap, ok := msg.Payload.(types.Snapshot)
			if !ok {
				continue
			}
			s.maybeSend(snap, timex.NowMs32())
		}
	}
}

func (s *Service) maybeSend(snap types.Snapshot, nowMs uint32) {
	if s.sentAny && timex.Since32(nowMs, s.lastSentMs) < s.minGapMs {
		return
	}
	frame, err := EncodeFrame(snap)
	if err != nil {
		println("Warn: telemetry encode failed:", err.Error())
		return
	}
	if _, err := s.link.Write(frame); err != nil {
		println("Warn: telemetry link write failed:", err.Error())
		return
	}
	s.lastSentMs = nowMs
	s.sentAny = true
}
