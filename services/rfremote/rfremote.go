// Package rfremote turns decoded RF key edges into control-loop relay
// triggers. The radio decoder itself lives below this service (an ISR
// on the device, a script in the simulator) and only hands over clean
// button events; this service maps buttons to their learned relays and
// republishes them on the control topic.
package rfremote

import (
	"context"

	"tltb-go/bus"
	"tltb-go/errcode"
	"tltb-go/services/settings"
	"tltb-go/types"
)

var (
	topicRFKey = bus.Topic{"tltb", "control", "rf_key"}
	topicLearn = bus.Topic{"tltb", "rf", "learn"}
)

// KeyEvent is one decoded remote button edge.
type KeyEvent struct {
	Key  uint8 // button slot index
	On   bool
	TSms uint32
}

// Learn binds a remote button slot to a load relay.
type Learn struct {
	Slot  int         `json:"slot"`
	Relay types.Relay `json:"relay"`
}

// Service consumes raw key events and serves learn requests.
type Service struct {
	keys <-chan KeyEvent
	set  *settings.Settings
}

func NewService(keys <-chan KeyEvent, set *settings.Settings) *Service {
	return &Service{keys: keys, set: set}
}

func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	learnSub := conn.Subscribe(topicLearn)
	defer conn.Unsubscribe(learnSub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.keys:
			relay, ok := s.set.RFSlot(int(ev.Key))
			if !ok {
				// Unlearned button: nothing to trigger.
				continue
			}
			conn.Publish(&bus.Message{
				Topic:   topicRFKey,
				Payload: types.RFKey{Relay: relay, On: ev.On, TSms: ev.TSms},
			})
		case msg := <-learnSub.Channel():
			s.handleLearn(conn, msg)
		}
	}
}

func (s *Service) handleLearn(conn *bus.Connection, msg *bus.Message) {
	p, ok := msg.Payload.(Learn)
	if !ok {
		if msg.CanReply() {
			conn.Reply(msg, types.ErrorReply{Error: string(errcode.InvalidPayload)}, false)
		}
		return
	}
	if err := s.set.SetRFSlot(p.Slot, p.Relay); err != nil {
		if msg.CanReply() {
			conn.Reply(msg, types.ErrorReply{Error: string(errcode.InvalidParams)}, false)
		}
		return
	}
	if msg.CanReply() {
		conn.Reply(msg, types.OKReply{OK: true}, false)
	}
}
