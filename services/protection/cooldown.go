package protection

import (
	"tltb-go/types"
	"tltb-go/x/mathx"
	"tltb-go/x/timex"
)

// CooldownConfig tunes the duty-cycle governor.
type CooldownConfig struct {
	ThresholdA float32 // sustained-high-current threshold
	SustainMs  uint32  // continuous time above threshold before cooldown
	CooldownMs uint32  // mandatory rest once tripped
}

// DefaultCooldownConfig matches the production duty limits: 20.5 A held for
// two minutes forces a two-minute rest of the enable line.
func DefaultCooldownConfig() CooldownConfig {
	return CooldownConfig{
		ThresholdA: 20.5,
		SustainMs:  120_000,
		CooldownMs: 120_000,
	}
}

// Cooldown is a two-state duty-cycle limiter independent of the Protector's
// latch set. It acts only on the master enable relay, applied by the loop
// on top of whatever the Protector and mode resolution decided.
type Cooldown struct {
	cfg CooldownConfig

	highStartMs uint32 // 0 = idle
	coolStartMs uint32 // 0 = not cooling
}

func NewCooldown(cfg CooldownConfig) *Cooldown {
	def := DefaultCooldownConfig()
	if cfg.ThresholdA == 0 {
		cfg.ThresholdA = def.ThresholdA
	}
	if cfg.SustainMs == 0 {
		cfg.SustainMs = def.SustainMs
	}
	if cfg.CooldownMs == 0 {
		cfg.CooldownMs = def.CooldownMs
	}
	return &Cooldown{cfg: cfg}
}

// Tick advances the governor. Returns true while the enable relay must be
// held off. An invalid current reading counts as below threshold.
func (g *Cooldown) Tick(loadA types.Reading, nowMs uint32) bool {
	if g.coolStartMs != 0 {
		if timex.Since32(nowMs, g.coolStartMs) >= g.cfg.CooldownMs {
			g.coolStartMs = 0
			return false
		}
		return true
	}

	high := loadA.Valid && mathx.Abs(loadA.Value) > g.cfg.ThresholdA
	if !high {
		// Dropped back below threshold before the sustain limit: no penalty.
		g.highStartMs = 0
		return false
	}
	if g.highStartMs == 0 {
		g.highStartMs = nowMs
	}
	if timex.Since32(nowMs, g.highStartMs) >= g.cfg.SustainMs {
		g.highStartMs = 0
		g.coolStartMs = nowMs
		return true
	}
	return false
}

// Active reports whether the mandatory rest window is running.
func (g *Cooldown) Active() bool { return g.coolStartMs != 0 }

// SecsRemaining returns the whole seconds left in the rest window,
// rounded up so the countdown starts at the full duration.
func (g *Cooldown) SecsRemaining(nowMs uint32) uint16 {
	if g.coolStartMs == 0 {
		return 0
	}
	elapsed := timex.Since32(nowMs, g.coolStartMs)
	if elapsed >= g.cfg.CooldownMs {
		return 0
	}
	return uint16((g.cfg.CooldownMs - elapsed + 999) / 1000)
}
