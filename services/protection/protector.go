// Package protection implements the latching electrical protection for the
// TLTB output stage: low-voltage cutoff (LVP), overcurrent (OCP), output
// voltage window (OUTV) and relay-coil plausibility, plus the independent
// duty-cycle cooldown governor.
//
// The Protector is a single-owner state machine ticked from the control
// loop. It never touches hardware: Tick reports whether all outputs must be
// forced off this tick, and the loop applies that through the one relay
// write per tick.
package protection

import (
	"tltb-go/types"
	"tltb-go/x/mathx"
	"tltb-go/x/timex"
)

// Safety clamps for the configurable limits. Setters clamp silently; a
// persisted value outside these ranges can never arm a wider window.
const (
	LvpMinV = 12.0
	LvpMaxV = 20.0

	OcpMinA = 5.0
	OcpMaxA = 25.5

	OutvMinV = 8.0
	OutvMaxV = 16.0
)

// Config carries the protection limits and tuning constants. Zero-valued
// timing fields take the hardened defaults from DefaultConfig.
type Config struct {
	LvpCutoffV  float32
	OcpLimitA   float32
	OutvCutoffV float32

	LvpTripMs     uint32  // source V below cutoff this long => latch
	LvpClearMs    uint32  // healthy-above-hysteresis window before auto-clear
	LvpClearHystV float32 // volts above cutoff required to begin recovery

	OcpTripMs      uint32  // debounce for the moderate-overload tier
	OcpInstantMult float32 // |I| >= mult*limit trips with no debounce

	OutvTripMs   uint32  // debounce for the low-side fault
	OutvCeilingV float32 // hard high-side bound, trips immediately
	OutvFloorV   float32 // hard low-side bound regardless of user cutoff
}

// DefaultConfig returns the hardened production constants.
func DefaultConfig() Config {
	return Config{
		LvpCutoffV:  15.5,
		OcpLimitA:   20.0,
		OutvCutoffV: 11.5,

		LvpTripMs:     200,
		LvpClearMs:    800,
		LvpClearHystV: 0.3,

		OcpTripMs:      25,
		OcpInstantMult: 2.0,

		OutvTripMs:   200,
		OutvCeilingV: OutvMaxV,
		OutvFloorV:   OutvMinV,
	}
}

// Inputs are the sensor samples for one tick. Invalid readings freeze the
// corresponding channel: no trip, no clear, debounce reset.
type Inputs struct {
	SrcV  types.Reading // battery/source voltage
	LoadA types.Reading // load current (signed)
	OutV  types.Reading // regulated 12V output voltage
}

// Protector holds the per-channel latch state. One instance, owned by the
// control loop, mutated only from that goroutine.
type Protector struct {
	cfg Config

	// Bypasses are never persisted; they reset to false every boot.
	lvpBypass  bool
	outvBypass bool

	lvpLatched  bool
	ocpLatched  bool
	outvLatched bool
	coilLatched bool

	// Debounce start timestamps; 0 = condition not currently observed.
	belowStartMs      uint32
	aboveClearStartMs uint32
	overStartMs       uint32
	outvBelowStartMs  uint32

	ocpTripRelay   int8 // relay commanded on at OCP trip time, -1 unknown
	coilFaultRelay int8 // suspect of the coil fault, -1 unknown

	ocpHold       bool   // while set, ClearOcpLatch is refused
	ocpClearArmed bool   // one-shot permission, consumed by ClearOcpLatch
	ocpSuppress   bool   // OCP detection masked until ocpSuppressUntil
	ocpSuppressUntil uint32
}

// New builds a Protector with cfg's limits clamped into their safety ranges
// and zero timing fields replaced by the hardened defaults.
func New(cfg Config) *Protector {
	def := DefaultConfig()
	if cfg.LvpTripMs == 0 {
		cfg.LvpTripMs = def.LvpTripMs
	}
	if cfg.LvpClearMs == 0 {
		cfg.LvpClearMs = def.LvpClearMs
	}
	if cfg.LvpClearHystV == 0 {
		cfg.LvpClearHystV = def.LvpClearHystV
	}
	if cfg.OcpTripMs == 0 {
		cfg.OcpTripMs = def.OcpTripMs
	}
	if cfg.OcpInstantMult == 0 {
		cfg.OcpInstantMult = def.OcpInstantMult
	}
	if cfg.OutvTripMs == 0 {
		cfg.OutvTripMs = def.OutvTripMs
	}
	if cfg.OutvCeilingV == 0 {
		cfg.OutvCeilingV = def.OutvCeilingV
	}
	if cfg.OutvFloorV == 0 {
		cfg.OutvFloorV = def.OutvFloorV
	}
	p := &Protector{cfg: cfg, ocpTripRelay: -1, coilFaultRelay: -1}
	p.SetLvpCutoff(cfg.LvpCutoffV)
	p.SetOcpLimit(cfg.OcpLimitA)
	p.SetOutvCutoff(cfg.OutvCutoffV)
	return p
}

// Tick evaluates every channel against this tick's samples. commanded is
// the relay pattern in force going into the tick, used to attribute an OCP
// trip to the relay carrying the load. Returns true when any latch is
// active, i.e. the loop must force every output off this tick.
func (p *Protector) Tick(in Inputs, commanded types.RelayMask, nowMs uint32) bool {
	p.tickLvp(in.SrcV, nowMs)
	p.tickOcp(in.LoadA, commanded, nowMs)
	p.tickOutv(in.OutV, nowMs)
	return p.Latched()
}

func (p *Protector) tickLvp(v types.Reading, nowMs uint32) {
	if !p.lvpBypass && v.Valid && v.Value < p.cfg.LvpCutoffV {
		if p.belowStartMs == 0 {
			p.belowStartMs = nowMs
		}
		if !p.lvpLatched && timex.Since32(nowMs, p.belowStartMs) >= p.cfg.LvpTripMs {
			p.lvpLatched = true
		}
	} else {
		// reset debounce if above threshold / missing / bypassing
		p.belowStartMs = 0
	}

	// Hysteretic auto-clear: healthy means cutoff + hysteresis, held for the
	// full clear window. Any dip restarts the window.
	if p.lvpLatched && v.Valid && v.Value >= p.cfg.LvpCutoffV+p.cfg.LvpClearHystV {
		if p.aboveClearStartMs == 0 {
			p.aboveClearStartMs = nowMs
		}
		if timex.Since32(nowMs, p.aboveClearStartMs) >= p.cfg.LvpClearMs {
			p.lvpLatched = false
			p.aboveClearStartMs = 0
		}
	} else {
		p.aboveClearStartMs = 0
	}
}

func (p *Protector) tickOcp(i types.Reading, commanded types.RelayMask, nowMs uint32) {
	if p.ocpSuppress {
		if timex.Reached32(nowMs, p.ocpSuppressUntil) {
			p.ocpSuppress = false
		} else {
			// Mode-change transient window: OCP evidence is not trusted.
			p.overStartMs = 0
			return
		}
	}

	if !i.Valid || p.ocpLatched {
		p.overStartMs = 0
		return
	}

	a := mathx.Abs(i.Value)
	switch {
	case a >= p.cfg.OcpLimitA*p.cfg.OcpInstantMult:
		// Short-circuit tier: no debounce.
		p.tripOcp(commanded)
	case a > p.cfg.OcpLimitA:
		if p.overStartMs == 0 {
			p.overStartMs = nowMs
		}
		if timex.Since32(nowMs, p.overStartMs) >= p.cfg.OcpTripMs {
			p.tripOcp(commanded)
		}
	default:
		p.overStartMs = 0
	}
}

func (p *Protector) tripOcp(commanded types.RelayMask) {
	p.ocpLatched = true
	p.overStartMs = 0
	p.ocpTripRelay = commanded.Sole()
}

func (p *Protector) tickOutv(v types.Reading, nowMs uint32) {
	if p.outvBypass {
		p.outvLatched = false
		p.outvBelowStartMs = 0
		return
	}
	if !v.Valid {
		// Latch persists; a vanished sensor is not evidence of recovery.
		p.outvBelowStartMs = 0
		return
	}

	lowCut := mathx.Max(p.cfg.OutvFloorV, p.cfg.OutvCutoffV)
	switch {
	case v.Value > p.cfg.OutvCeilingV:
		// High-side fault: immediate.
		p.outvLatched = true
		p.outvBelowStartMs = 0
	case v.Value < lowCut:
		if p.outvBelowStartMs == 0 {
			p.outvBelowStartMs = nowMs
		}
		if !p.outvLatched && timex.Since32(nowMs, p.outvBelowStartMs) >= p.cfg.OutvTripMs {
			p.outvLatched = true
		}
	default:
		// Healthy band: this channel self-heals with no debounce.
		p.outvLatched = false
		p.outvBelowStartMs = 0
	}
}

// TripCoil latches the relay-coil fault, attributed to relay (or -1 when
// the mismatch cannot be pinned to a single output). Called by CoilHealth.
func (p *Protector) TripCoil(relay int8) {
	if p.coilLatched {
		return
	}
	p.coilLatched = true
	p.coilFaultRelay = relay
}

// ---- Latch accessors ----

func (p *Protector) Latched() bool {
	return p.lvpLatched || p.ocpLatched || p.outvLatched || p.coilLatched
}

func (p *Protector) IsLvpLatched() bool  { return p.lvpLatched }
func (p *Protector) IsOcpLatched() bool  { return p.ocpLatched }
func (p *Protector) IsOutvLatched() bool { return p.outvLatched }
func (p *Protector) IsCoilLatched() bool { return p.coilLatched }

func (p *Protector) OcpTripRelay() int8   { return p.ocpTripRelay }
func (p *Protector) CoilFaultRelay() int8 { return p.coilFaultRelay }

// ---- Explicit clears ----
// None of these re-evaluate conditions: the caller is trusted to have
// confirmed the physical safety gesture (selector held at OFF).

func (p *Protector) ClearLvpLatch() {
	p.lvpLatched = false
	p.belowStartMs = 0
	p.aboveClearStartMs = 0
}

// ArmOcpClear grants the one-shot permission consumed by the next
// ClearOcpLatch call. Only the fault-acknowledgment flow, which has seen
// the selector confirmed at OFF, may arm it.
func (p *Protector) ArmOcpClear() { p.ocpClearArmed = true }

// ClearOcpLatch clears the OCP latch if armed and not held. The permission
// is consumed either way; an unarmed or held call changes nothing else.
func (p *Protector) ClearOcpLatch() bool {
	if !p.ocpClearArmed {
		return false
	}
	p.ocpClearArmed = false
	if p.ocpHold {
		return false
	}
	p.ocpLatched = false
	p.overStartMs = 0
	p.ocpTripRelay = -1
	return true
}

func (p *Protector) ClearOutvLatch() {
	p.outvLatched = false
	p.outvBelowStartMs = 0
}

func (p *Protector) ClearCoilLatch() {
	p.coilLatched = false
	p.coilFaultRelay = -1
}

// ClearLatches resets every latch and timer. Boot/maintenance path only:
// the OCP permission gate does not apply here.
func (p *Protector) ClearLatches() {
	p.lvpLatched = false
	p.ocpLatched = false
	p.outvLatched = false
	p.coilLatched = false
	p.belowStartMs = 0
	p.aboveClearStartMs = 0
	p.overStartMs = 0
	p.outvBelowStartMs = 0
	p.ocpTripRelay = -1
	p.coilFaultRelay = -1
	p.ocpClearArmed = false
}

// ---- OCP hold / suppression ----

// SetOcpHold keeps the OCP latch unclearable while a confirmation sequence
// is on screen.
func (p *Protector) SetOcpHold(on bool) { p.ocpHold = on }
func (p *Protector) OcpHold() bool      { return p.ocpHold }

// SuppressOcpUntil masks OCP detection until the given timestamp, hiding
// the switching transient of a relay-mode change.
func (p *Protector) SuppressOcpUntil(deadlineMs uint32) {
	p.ocpSuppress = true
	p.ocpSuppressUntil = deadlineMs
}

// ---- Bypasses ----

// SetLvpBypass enables/disables LVP evaluation. Enabling clears any
// existing LVP latch: bypass wins over the fault.
func (p *Protector) SetLvpBypass(on bool) {
	p.lvpBypass = on
	if on {
		p.lvpLatched = false
		p.belowStartMs = 0
		p.aboveClearStartMs = 0
	}
}
func (p *Protector) LvpBypass() bool { return p.lvpBypass }

func (p *Protector) SetOutvBypass(on bool) {
	p.outvBypass = on
	if on {
		p.outvLatched = false
		p.outvBelowStartMs = 0
	}
}
func (p *Protector) OutvBypass() bool { return p.outvBypass }

// ---- Runtime limit setters (clamped; existing latches untouched) ----

func (p *Protector) SetLvpCutoff(v float32) {
	p.cfg.LvpCutoffV = mathx.Clamp(v, LvpMinV, LvpMaxV)
}
func (p *Protector) SetOcpLimit(a float32) {
	p.cfg.OcpLimitA = mathx.Clamp(a, OcpMinA, OcpMaxA)
}
func (p *Protector) SetOutvCutoff(v float32) {
	p.cfg.OutvCutoffV = mathx.Clamp(v, OutvMinV, OutvMaxV)
}

func (p *Protector) LvpCutoff() float32  { return p.cfg.LvpCutoffV }
func (p *Protector) OcpLimit() float32   { return p.cfg.OcpLimitA }
func (p *Protector) OutvCutoff() float32 { return p.cfg.OutvCutoffV }
