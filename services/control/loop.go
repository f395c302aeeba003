// Package control runs the superloop that owns all protection state and
// the single relay actuation surface. Each tick samples the sensors and
// the selector, advances the protection machines, resolves the desired
// relay pattern and writes hardware exactly once, with the precedence
// Protector over Cooldown over mode resolution.
package control

import (
	"tltb-go/hal"
	"tltb-go/services/protection"
	"tltb-go/types"
)

// LoopConfig aggregates the tuning of every machine the loop owns.
type LoopConfig struct {
	Protection protection.Config
	Cooldown   protection.CooldownConfig
	CoilHealth protection.CoilHealthConfig
	Resolver   ResolverConfig

	// OCP detection is masked this long after a selector move so the
	// inrush of the next relay pattern cannot false-trip.
	ModeChangeSuppressMs uint32

	UIMode types.UIMode
}

// DefaultLoopConfig returns the production tuning.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Protection:           protection.DefaultConfig(),
		Cooldown:             protection.DefaultCooldownConfig(),
		CoilHealth:           protection.DefaultCoilHealthConfig(),
		Resolver:             DefaultResolverConfig(),
		ModeChangeSuppressMs: 400,
		UIMode:               types.UIModeStandard,
	}
}

// Loop is the control state machine. It is single-owner: Tick and every
// setter run on the same goroutine, between ticks.
type Loop struct {
	board hal.Board
	prot  *protection.Protector
	cool  *protection.Cooldown
	coil  *protection.CoilHealth
	res   *Resolver

	suppressMs uint32
	uiMode     types.UIMode

	// Boot gate: nothing energizes until the selector has been seen at
	// OFF once.
	startupGuard bool

	// Two-state scheduler. While a fault is pending acknowledgment the
	// loop forces everything off and waits for the confirmed-OFF
	// gesture; no mode resolution, no RF service.
	pending types.FaultKind

	// RF-triggered load outputs, honored only in the RF selector
	// position and reset when entering or leaving it.
	rfMask types.RelayMask

	lastStable types.RotaryMode
	commanded  types.RelayMask

	prevLvp, prevOcp, prevOutv, prevCoil bool

	events []types.FaultEvent
}

// NewLoop wires the loop to a board. The startup guard begins active and
// drops on the first tick that reads the selector at OFF.
func NewLoop(board hal.Board, cfg LoopConfig) *Loop {
	if cfg.ModeChangeSuppressMs == 0 {
		cfg.ModeChangeSuppressMs = 400
	}
	return &Loop{
		board:        board,
		prot:         protection.New(cfg.Protection),
		cool:         protection.NewCooldown(cfg.Cooldown),
		coil:         protection.NewCoilHealth(cfg.CoilHealth),
		res:          NewResolver(cfg.Resolver),
		suppressMs:   cfg.ModeChangeSuppressMs,
		uiMode:       cfg.UIMode,
		startupGuard: true,
		lastStable:   types.ModeInvalid,
	}
}

// Tick runs one control cycle and returns this tick's telemetry.
func (l *Loop) Tick(nowMs uint32) types.Snapshot {
	in := protection.Inputs{
		SrcV:  types.ReadingOf(l.board.ReadSourceVoltage()),
		LoadA: types.ReadingOf(l.board.ReadLoadCurrent()),
		OutV:  types.ReadingOf(l.board.ReadOutputVoltage()),
	}
	coilA := types.ReadingOf(l.board.ReadCoilCurrent())

	raw := l.board.SampleRotary()
	stable := l.res.Sample(raw, nowMs)
	if stable != l.lastStable {
		l.prot.SuppressOcpUntil(nowMs + l.suppressMs)
		if stable == types.ModeRFEnable || l.lastStable == types.ModeRFEnable {
			l.rfMask = types.MaskAllOff
		}
		l.lastStable = stable
	}

	// Protection machines see the pattern that was in force going into
	// this tick, for trip attribution.
	l.coil.Tick(coilA, l.commanded, l.prot, nowMs)
	cooldownHold := l.cool.Tick(in.LoadA, nowMs)
	l.prot.Tick(in, l.commanded, nowMs)

	if l.pending == types.FaultNone && l.prot.Latched() {
		l.pending = l.worstLatch()
	}
	if l.pending != types.FaultNone {
		l.servicePending(nowMs)
	}

	if l.startupGuard && RawOff(raw) {
		l.startupGuard = false
	}

	desired := types.MaskAllOff
	if !l.startupGuard && l.pending == types.FaultNone && !l.prot.Latched() {
		desired = l.modeMask(stable)
	}
	if cooldownHold {
		desired = desired.Without(types.RelayEnable)
	}

	l.board.SetRelays(desired)
	l.commanded = desired

	l.recordEvents(nowMs)
	return l.snapshot(in, coilA, stable, nowMs)
}

// worstLatch picks the channel presented first: the sticky faults that
// can mean wiring damage outrank the self-healing supply faults.
func (l *Loop) worstLatch() types.FaultKind {
	switch {
	case l.prot.IsOcpLatched():
		return types.FaultOCP
	case l.prot.IsCoilLatched():
		return types.FaultCoil
	case l.prot.IsLvpLatched():
		return types.FaultLVP
	case l.prot.IsOutvLatched():
		return types.FaultOUTV
	default:
		return types.FaultNone
	}
}

// servicePending advances the acknowledgment flow for the pending fault.
// LVP and OUTV may self-heal out of it; everything else waits for the
// selector held at OFF.
func (l *Loop) servicePending(nowMs uint32) {
	if !l.latchOf(l.pending) {
		l.pending = l.worstLatch()
		return
	}
	if !l.res.OffConfirmed(nowMs) {
		return
	}
	switch l.pending {
	case types.FaultOCP:
		// Two-phase gate satisfied in one scheduler step: the confirmed
		// gesture is the only code path that ever arms the permission.
		l.prot.ArmOcpClear()
		l.prot.ClearOcpLatch()
	case types.FaultCoil:
		l.prot.ClearCoilLatch()
	case types.FaultLVP:
		l.prot.ClearLvpLatch()
	case types.FaultOUTV:
		l.prot.ClearOutvLatch()
	}
	l.pending = l.worstLatch()
}

func (l *Loop) latchOf(k types.FaultKind) bool {
	switch k {
	case types.FaultOCP:
		return l.prot.IsOcpLatched()
	case types.FaultCoil:
		return l.prot.IsCoilLatched()
	case types.FaultLVP:
		return l.prot.IsLvpLatched()
	case types.FaultOUTV:
		return l.prot.IsOutvLatched()
	default:
		return false
	}
}

// modeMask resolves the stable selector position to a relay pattern.
// The master enable relay is on in every position except OFF; an
// invalid (between-detent) stable mode energizes nothing.
func (l *Loop) modeMask(m types.RotaryMode) types.RelayMask {
	switch m {
	case types.ModeAllOff:
		return types.MaskAllOff
	case types.ModeRFEnable:
		return l.rfMask.With(types.RelayEnable)
	case types.ModeLeft:
		return types.Mask(types.RelayLeft, types.RelayEnable)
	case types.ModeRight:
		return types.Mask(types.RelayRight, types.RelayEnable)
	case types.ModeBrake:
		if l.uiMode == types.UIModeRV {
			// RV wiring: brake is the combined LEFT+RIGHT lamps.
			return types.Mask(types.RelayLeft, types.RelayRight, types.RelayEnable)
		}
		return types.Mask(types.RelayBrake, types.RelayEnable)
	case types.ModeTail:
		return types.Mask(types.RelayTail, types.RelayEnable)
	case types.ModeMarker:
		return types.Mask(types.RelayMarker, types.RelayEnable)
	case types.ModeAux:
		return types.Mask(types.RelayAux, types.RelayEnable)
	default:
		return types.MaskAllOff
	}
}

func (l *Loop) recordEvents(nowMs uint32) {
	report := func(kind types.FaultKind, prev *bool, now bool, relay int8) {
		if now != *prev {
			l.events = append(l.events, types.FaultEvent{
				Kind: kind, Latched: now, Relay: relay, TSms: nowMs,
			})
			*prev = now
		}
	}
	report(types.FaultLVP, &l.prevLvp, l.prot.IsLvpLatched(), -1)
	report(types.FaultOCP, &l.prevOcp, l.prot.IsOcpLatched(), l.prot.OcpTripRelay())
	report(types.FaultOUTV, &l.prevOutv, l.prot.IsOutvLatched(), -1)
	report(types.FaultCoil, &l.prevCoil, l.prot.IsCoilLatched(), l.prot.CoilFaultRelay())
}

// Events returns and clears the fault transitions recorded since the
// last call.
func (l *Loop) Events() []types.FaultEvent {
	ev := l.events
	l.events = nil
	return ev
}

func (l *Loop) snapshot(in protection.Inputs, coilA types.Reading, mode types.RotaryMode, nowMs uint32) types.Snapshot {
	return types.Snapshot{
		SrcV:  in.SrcV.Float(),
		LoadA: in.LoadA.Float(),
		OutV:  in.OutV.Float(),
		CoilA: coilA.Float(),

		LvpLatched:  l.prot.IsLvpLatched(),
		OcpLatched:  l.prot.IsOcpLatched(),
		OutvLatched: l.prot.IsOutvLatched(),
		CoilLatched: l.prot.IsCoilLatched(),

		LvpBypass:  l.prot.LvpBypass(),
		OutvBypass: l.prot.OutvBypass(),

		StartupGuard:     l.startupGuard,
		CooldownActive:   l.cool.Active(),
		CooldownSecsLeft: l.cool.SecsRemaining(nowMs),

		Mode:   mode,
		Relays: l.commanded,

		OcpTripRelay:   l.prot.OcpTripRelay(),
		CoilFaultRelay: l.prot.CoilFaultRelay(),

		TSms: nowMs,
	}
}

// ---- Between-tick control surface ----
// Called from the loop goroutine only, while no Tick is in flight.

func (l *Loop) SetLvpCutoff(v float32)  { l.prot.SetLvpCutoff(v) }
func (l *Loop) SetOcpLimit(a float32)   { l.prot.SetOcpLimit(a) }
func (l *Loop) SetOutvCutoff(v float32) { l.prot.SetOutvCutoff(v) }

func (l *Loop) LvpCutoff() float32  { return l.prot.LvpCutoff() }
func (l *Loop) OcpLimit() float32   { return l.prot.OcpLimit() }
func (l *Loop) OutvCutoff() float32 { return l.prot.OutvCutoff() }

func (l *Loop) SetLvpBypass(on bool)  { l.prot.SetLvpBypass(on) }
func (l *Loop) SetOutvBypass(on bool) { l.prot.SetOutvBypass(on) }

func (l *Loop) SetUIMode(m types.UIMode) { l.uiMode = m }
func (l *Loop) UIMode() types.UIMode     { return l.uiMode }

// RFKey records an RF remote trigger for a load output. The pattern only
// energizes anything while the selector sits at the RF position, and
// entering or leaving that position resets it.
func (l *Loop) RFKey(relay types.Relay, on bool) {
	if relay >= types.RelayEnable {
		return
	}
	if on {
		l.rfMask = l.rfMask.With(relay)
	} else {
		l.rfMask = l.rfMask.Without(relay)
	}
}

// ---- Introspection for tests and telemetry ----

func (l *Loop) Pending() types.FaultKind  { return l.pending }
func (l *Loop) StartupGuard() bool        { return l.startupGuard }
func (l *Loop) Commanded() types.RelayMask { return l.commanded }
func (l *Loop) Protector() *protection.Protector { return l.prot }
