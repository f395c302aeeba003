package control

import (
	"context"
	"time"

	"tltb-go/bus"
	"tltb-go/errcode"
	"tltb-go/hal"
	"tltb-go/services/settings"
	"tltb-go/types"
	"tltb-go/x/timex"
)

var (
	topicTelemetry = bus.Topic{"tltb", "telemetry"}
	topicControl   = bus.Topic{"tltb", "control", bus.WildcardOne}
)

// Control verbs, the last topic token under tltb/control/.
const (
	verbSetLvp   = "set_lvp"
	verbSetOcp   = "set_ocp"
	verbSetOutv  = "set_outv"
	verbBypass   = "bypass"
	verbUIMode   = "ui_mode"
	verbRFKey    = "rf_key"
	verbGetLimits = "get_limits"
)

// Limits is the get_limits reply payload.
type Limits struct {
	LvpCutoffV  float32      `json:"lvpCutoffV"`
	OcpLimitA   float32      `json:"ocpLimitA"`
	OutvCutoffV float32      `json:"outvCutoffV"`
	UIMode      types.UIMode `json:"uiMode"`
}

// Service owns the control loop goroutine: a fixed-period ticker drives
// Tick, and control messages are serviced strictly between ticks on the
// same goroutine, so the Loop never needs a lock.
type Service struct {
	board hal.Board
	cfg   LoopConfig
	set   *settings.Settings // nil on boards without a store
	tick  time.Duration

	loop *Loop
}

// NewService builds the service. tick <= 0 selects the 5 ms production
// period.
func NewService(board hal.Board, cfg LoopConfig, set *settings.Settings, tick time.Duration) *Service {
	if tick <= 0 {
		tick = 5 * time.Millisecond
	}
	return &Service{board: board, cfg: cfg, set: set, tick: tick}
}

// Start loads persisted limits, builds the loop and launches it.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.set != nil {
		s.cfg.Protection.LvpCutoffV = s.set.LvpCutoff(s.cfg.Protection.LvpCutoffV)
		s.cfg.Protection.OcpLimitA = s.set.OcpLimit(s.cfg.Protection.OcpLimitA)
		s.cfg.Protection.OutvCutoffV = s.set.OutvCutoff(s.cfg.Protection.OutvCutoffV)
		s.cfg.UIMode = s.set.UIMode()
	}
	s.loop = NewLoop(s.board, s.cfg)
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicControl)
	defer conn.Unsubscribe(sub)

	tick := time.NewTicker(s.tick)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// Leave the outputs de-energized on the way out.
			s.board.SetRelays(types.MaskAllOff)
			println("Info: control service stopping")
			return
		case msg := <-sub.Channel():
			s.handleControl(conn, msg)
		case <-tick.C:
			now := timex.NowMs32()
			snap := s.loop.Tick(now)
			conn.Publish(&bus.Message{Topic: topicTelemetry, Payload: snap, Retained: true})
			for _, ev := range s.loop.Events() {
				conn.Publish(&bus.Message{
					Topic:   bus.T("tltb", "fault", ev.Kind.String()),
					Payload: ev,
				})
			}
		}
	}
}

// handleControl runs between ticks on the loop goroutine.
func (s *Service) handleControl(conn *bus.Connection, msg *bus.Message) {
	verb, _ := msg.Topic.At(2).(string)
	if verb == verbGetLimits {
		if msg.CanReply() {
			conn.Reply(msg, Limits{
				LvpCutoffV:  s.loop.LvpCutoff(),
				OcpLimitA:   s.loop.OcpLimit(),
				OutvCutoffV: s.loop.OutvCutoff(),
				UIMode:      s.loop.UIMode(),
			}, false)
		}
		return
	}
	code := s.apply(verb, msg.Payload)

	if !msg.CanReply() {
		return
	}
	if code == errcode.OK {
		conn.Reply(msg, types.OKReply{OK: true}, false)
	} else {
		conn.Reply(msg, types.ErrorReply{Error: string(code)}, false)
	}
}

func (s *Service) apply(verb string, payload any) errcode.Code {
	switch verb {
	case verbSetLvp:
		p, ok := payload.(types.SetLvpCutoff)
		if !ok {
			return errcode.InvalidPayload
		}
		s.loop.SetLvpCutoff(p.Volts)
		if s.set != nil {
			_ = s.set.SetLvpCutoff(s.loop.LvpCutoff())
		}
	case verbSetOcp:
		p, ok := payload.(types.SetOcpLimit)
		if !ok {
			return errcode.InvalidPayload
		}
		s.loop.SetOcpLimit(p.Amps)
		if s.set != nil {
			_ = s.set.SetOcpLimit(s.loop.OcpLimit())
		}
	case verbSetOutv:
		p, ok := payload.(types.SetOutvCutoff)
		if !ok {
			return errcode.InvalidPayload
		}
		s.loop.SetOutvCutoff(p.Volts)
		if s.set != nil {
			_ = s.set.SetOutvCutoff(s.loop.OutvCutoff())
		}
	case verbBypass:
		p, ok := payload.(types.SetBypass)
		if !ok {
			return errcode.InvalidPayload
		}
		switch p.Channel {
		case "lvp":
			s.loop.SetLvpBypass(p.On)
		case "outv":
			s.loop.SetOutvBypass(p.On)
		default:
			return errcode.InvalidParams
		}
		// Bypasses are volatile on purpose: no persistence.
	case verbUIMode:
		p, ok := payload.(types.SetUIMode)
		if !ok {
			return errcode.InvalidPayload
		}
		if p.Mode > types.UIModeRV {
			return errcode.InvalidParams
		}
		s.loop.SetUIMode(p.Mode)
		if s.set != nil {
			_ = s.set.SetUIMode(p.Mode)
		}
	case verbRFKey:
		p, ok := payload.(types.RFKey)
		if !ok {
			return errcode.InvalidPayload
		}
		if p.Relay >= types.RelayEnable {
			return errcode.UnknownRelay
		}
		s.loop.RFKey(p.Relay, p.On)
	default:
		return errcode.InvalidTopic
	}
	return errcode.OK
}
