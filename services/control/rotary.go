package control

import (
	"tltb-go/types"
	"tltb-go/x/timex"
)

// ResolverConfig tunes the selector debounce.
type ResolverConfig struct {
	DwellMs      uint32 // same classification this long before it is stable
	OffConfirmMs uint32 // raw OFF held this long to count as confirmed
}

// DefaultResolverConfig: 30 ms dwell absorbs detent transition noise,
// 300 ms at OFF is the fault-clear confirmation gesture.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{DwellMs: 30, OffConfirmMs: 300}
}

// Resolver debounces the raw one-hot selector sample into a stable
// RotaryMode. The stable mode only changes after the new classification
// has held for the dwell window, so the relays never chase the open or
// double-contact states a mechanical turn passes through.
type Resolver struct {
	cfg ResolverConfig

	stable         types.RotaryMode
	candidate      types.RotaryMode
	candidateSince uint32

	offSince uint32 // 0 = raw OFF not currently observed
}

// NewResolver starts with the selector classified as invalid; the first
// stable classification replaces it after one dwell window.
func NewResolver(cfg ResolverConfig) *Resolver {
	def := DefaultResolverConfig()
	if cfg.DwellMs == 0 {
		cfg.DwellMs = def.DwellMs
	}
	if cfg.OffConfirmMs == 0 {
		cfg.OffConfirmMs = def.OffConfirmMs
	}
	return &Resolver{
		cfg:       cfg,
		stable:    types.ModeInvalid,
		candidate: types.ModeInvalid,
	}
}

// Classify maps a raw sample to a mode. Anything but exactly one closed
// contact is invalid.
func Classify(raw uint8) types.RotaryMode {
	if raw == 0 || raw&(raw-1) != 0 {
		return types.ModeInvalid
	}
	for i := uint8(0); i < 8; i++ {
		if raw == 1<<i {
			return types.RotaryMode(i)
		}
	}
	return types.ModeInvalid
}

// Sample feeds one raw read and returns the current stable mode.
func (r *Resolver) Sample(raw uint8, nowMs uint32) types.RotaryMode {
	m := Classify(raw)
	if m != r.candidate {
		r.candidate = m
		r.candidateSince = nowMs
	} else if m != r.stable && timex.Since32(nowMs, r.candidateSince) >= r.cfg.DwellMs {
		r.stable = m
	}

	// Confirmed-OFF tracking runs on the raw classification, not the
	// stable mode: the gesture wants the physical contact, with its own
	// longer window.
	if m == types.ModeAllOff {
		if r.offSince == 0 {
			r.offSince = nowMs
			if r.offSince == 0 {
				r.offSince = 1
			}
		}
	} else {
		r.offSince = 0
	}
	return r.stable
}

// Stable returns the last debounced mode without consuming a sample.
func (r *Resolver) Stable() types.RotaryMode { return r.stable }

// OffConfirmed reports whether the raw read has sat at OFF continuously
// for the confirmation window. Valid after the Sample call for this tick.
func (r *Resolver) OffConfirmed(nowMs uint32) bool {
	return r.offSince != 0 && timex.Since32(nowMs, r.offSince) >= r.cfg.OffConfirmMs
}

// RawOff reports whether the instantaneous sample reads OFF, with no
// dwell requirement. The startup guard uses this.
func RawOff(raw uint8) bool { return Classify(raw) == types.ModeAllOff }
