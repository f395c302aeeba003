package annunciator

import (
	"context"

	"tltb-go/bus"
	"tltb-go/hal"
	"tltb-go/types"
	"tltb-go/x/mathx"
)

var (
	topicTelemetry = bus.Topic{"tltb", "telemetry"}
	topicFaults    = bus.Topic{"tltb", "fault", bus.WildcardOne}
)

// Off-current alarm: everything commanded off yet the load shunt still
// sees real current means a welded relay or wiring fault downstream.
const offCurrentThresholdA = 1.0

// Service turns the telemetry stream into buzzer drive. The snapshot's
// own timestamp clocks the state machine, so the pattern is exact even
// if bus delivery jitters.
type Service struct {
	board hal.Board
	buz   Buzzer
}

func NewService(board hal.Board) *Service {
	return &Service{board: board}
}

func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	telSub := conn.Subscribe(topicTelemetry)
	defer conn.Unsubscribe(telSub)
	faultSub := conn.Subscribe(topicFaults)
	defer conn.Unsubscribe(faultSub)

	for {
		select {
		case <-ctx.Done():
			s.board.SetBuzzer(false)
			return
		case msg := <-faultSub.Channel():
			if ev, ok := msg.Payload.(types.FaultEvent); ok && !ev.Latched {
				// Acknowledge a cleared latch with a short chirp.
				s.buz.Beep(0, ev.TSms)
			}
		case msg := <-telSub.Channel():
			snap, ok := msg.Payload.(types.Snapshot)
			if !ok {
				continue
			}
			s.board.SetBuzzer(s.buz.Tick(alarm(snap), snap.TSms))
		}
	}
}

// alarm decides whether the repeating fault pattern should sound.
// Bypassed LVP/OUTV channels stay silent; OCP and coil faults always
// sound.
func alarm(s types.Snapshot) bool {
	if s.OcpLatched || s.CoilLatched {
		return true
	}
	if s.LvpLatched && !s.LvpBypass {
		return true
	}
	if s.OutvLatched && !s.OutvBypass {
		return true
	}
	if s.Relays == types.MaskAllOff && s.LoadA == s.LoadA && mathx.Abs(s.LoadA) > offCurrentThresholdA {
		return true
	}
	return false
}
