package protection

import (
	"tltb-go/types"
	"tltb-go/x/mathx"
	"tltb-go/x/timex"
)

// CoilHealthConfig tunes the relay-coil plausibility check.
type CoilHealthConfig struct {
	NominalCoilA float32 // expected draw of one energized coil
	TolFrac      float32 // fractional tolerance band
	PeriodMs     uint32  // check throttle
}

// DefaultCoilHealthConfig: ~80 mA per coil with a wide ±40% band to absorb
// coil-to-coil variation and sense noise, checked at 2 Hz.
func DefaultCoilHealthConfig() CoilHealthConfig {
	return CoilHealthConfig{
		NominalCoilA: 0.080,
		TolFrac:      0.40,
		PeriodMs:     500,
	}
}

// CoilHealth compares the measured aggregate coil current against the draw
// expected for the commanded relay count. A disagreement beyond tolerance
// means a stuck, shorted or disconnected coil and escalates into the
// Protector's coil latch. It is a plausibility check, not a precise fault
// isolator: the suspect relay is attributed only when exactly one load
// output is commanded on.
type CoilHealth struct {
	cfg         CoilHealthConfig
	lastCheckMs uint32
}

func NewCoilHealth(cfg CoilHealthConfig) *CoilHealth {
	def := DefaultCoilHealthConfig()
	if cfg.NominalCoilA == 0 {
		cfg.NominalCoilA = def.NominalCoilA
	}
	if cfg.TolFrac == 0 {
		cfg.TolFrac = def.TolFrac
	}
	if cfg.PeriodMs == 0 {
		cfg.PeriodMs = def.PeriodMs
	}
	return &CoilHealth{cfg: cfg}
}

// Tick runs the throttled comparison and trips the Protector on mismatch.
func (c *CoilHealth) Tick(coilA types.Reading, commanded types.RelayMask, p *Protector, nowMs uint32) {
	if c.lastCheckMs != 0 && timex.Since32(nowMs, c.lastCheckMs) < c.cfg.PeriodMs {
		return
	}
	c.lastCheckMs = nowMs

	if !coilA.Valid || p.IsCoilLatched() {
		return
	}

	n := commanded.Count()
	expected := float32(n) * c.cfg.NominalCoilA
	// Tolerance floor of one nominal coil keeps the zero-relay case from
	// tripping on sense noise.
	tol := mathx.Max(expected, c.cfg.NominalCoilA) * c.cfg.TolFrac

	if mathx.Abs(coilA.Value-expected) <= tol {
		return
	}

	suspect := int8(-1)
	if n == 1 {
		suspect = commanded.Sole()
		if suspect < 0 && commanded.Has(types.RelayEnable) {
			suspect = int8(types.RelayEnable)
		}
	}
	p.TripCoil(suspect)
}
