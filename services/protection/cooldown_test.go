package protection

import (
	"testing"

	"tltb-go/types"
)

func TestCooldownFullCycle(t *testing.T) {
	g := NewCooldown(CooldownConfig{ThresholdA: 20.5, SustainMs: 120_000, CooldownMs: 120_000})

	// Sustained high current up to just under the limit: no cutoff yet.
	now := uint32(1000)
	for elapsed := uint32(0); elapsed < 119_000; elapsed += 1000 {
		if g.Tick(valid(22), now+elapsed) {
			t.Fatalf("cooldown engaged early at +%dms", elapsed)
		}
	}
	if g.Active() {
		t.Fatal("governor active before the sustain limit")
	}

	// Crossing the sustain limit forces the enable line off.
	if !g.Tick(valid(22), now+120_000) {
		t.Fatal("cooldown did not engage at the sustain limit")
	}
	if !g.Active() {
		t.Fatal("Active() false after engagement")
	}
	if secs := g.SecsRemaining(now + 120_000); secs != 120 {
		t.Fatalf("countdown starts at %d, want 120", secs)
	}

	// Mid-window: still held off, countdown decreasing. Current level is
	// irrelevant during the rest window.
	mid := now + 120_000 + 60_000
	if !g.Tick(valid(0), mid) {
		t.Fatal("cooldown released mid-window")
	}
	if secs := g.SecsRemaining(mid); secs != 60 {
		t.Fatalf("countdown = %d at half window, want 60", secs)
	}

	// Window elapsed: back to idle.
	end := now + 240_000
	if g.Tick(valid(0), end) {
		t.Fatal("cooldown still forcing off after the rest window")
	}
	if g.Active() || g.SecsRemaining(end) != 0 {
		t.Fatal("governor did not return to idle")
	}
}

func TestCooldownResetWithoutPenalty(t *testing.T) {
	g := NewCooldown(CooldownConfig{ThresholdA: 20.5, SustainMs: 120_000, CooldownMs: 120_000})

	// High current for most of the window, then a dip: timer resets.
	for elapsed := uint32(0); elapsed <= 100_000; elapsed += 1000 {
		g.Tick(valid(25), elapsed)
	}
	g.Tick(valid(5), 101_000)

	// Another long-but-not-limit stretch must not trip.
	for elapsed := uint32(102_000); elapsed <= 210_000; elapsed += 1000 {
		if g.Tick(valid(25), elapsed) {
			t.Fatalf("cooldown engaged at +%dms despite timer reset", elapsed)
		}
	}
}

func TestCooldownIgnoresInvalidReading(t *testing.T) {
	g := NewCooldown(CooldownConfig{})

	for elapsed := uint32(0); elapsed <= 300_000; elapsed += 1000 {
		if g.Tick(absent(), elapsed) {
			t.Fatal("cooldown engaged on absent sensor")
		}
	}
	if g.Active() {
		t.Fatal("governor active with no current evidence")
	}
}

func TestCoilHealthThrottleAndTrip(t *testing.T) {
	p := New(DefaultConfig())
	c := NewCoilHealth(CoilHealthConfig{NominalCoilA: 0.080, TolFrac: 0.40, PeriodMs: 500})

	mask := types.Mask(types.RelayTail, types.RelayEnable) // expect ~160mA

	// Healthy aggregate current: no trip.
	c.Tick(valid(0.17), mask, p, 1000)
	if p.IsCoilLatched() {
		t.Fatal("coil fault tripped on healthy current")
	}

	// Mismatch inside the throttle window is not even examined.
	c.Tick(valid(0.010), mask, p, 1200)
	if p.IsCoilLatched() {
		t.Fatal("throttle window not honored")
	}

	// Next due check sees the mismatch. Two relays commanded: suspect -1.
	c.Tick(valid(0.010), mask, p, 1600)
	if !p.IsCoilLatched() {
		t.Fatal("coil mismatch did not trip")
	}
	if p.CoilFaultRelay() != -1 {
		t.Fatalf("suspect = %d, want -1 for multi-relay pattern", p.CoilFaultRelay())
	}
}

func TestCoilHealthSingleRelayAttribution(t *testing.T) {
	p := New(DefaultConfig())
	c := NewCoilHealth(CoilHealthConfig{})

	// Exactly one load relay commanded, no measurable coil current:
	// open coil, attributed to that relay.
	mask := types.Mask(types.RelayMarker)
	c.Tick(valid(0.001), mask, p, 500)
	if !p.IsCoilLatched() {
		t.Fatal("open coil not detected")
	}
	if p.CoilFaultRelay() != int8(types.RelayMarker) {
		t.Fatalf("suspect = %d, want %d", p.CoilFaultRelay(), types.RelayMarker)
	}
}

func TestCoilHealthQuietWhenIdle(t *testing.T) {
	p := New(DefaultConfig())
	c := NewCoilHealth(CoilHealthConfig{})

	// Nothing commanded, tiny noise on the sense line: inside tolerance.
	c.Tick(valid(0.02), types.MaskAllOff, p, 500)
	if p.IsCoilLatched() {
		t.Fatal("idle noise tripped the coil fault")
	}

	// Nothing commanded but a whole coil's worth of current: stuck relay.
	c.Tick(valid(0.085), types.MaskAllOff, p, 1100)
	if !p.IsCoilLatched() {
		t.Fatal("stuck relay (current with nothing commanded) not detected")
	}
	if p.CoilFaultRelay() != -1 {
		t.Fatalf("suspect = %d, want -1 when nothing commanded", p.CoilFaultRelay())
	}
}

func TestCoilHealthAbsentSensor(t *testing.T) {
	p := New(DefaultConfig())
	c := NewCoilHealth(CoilHealthConfig{})

	c.Tick(absent(), types.Mask(types.RelayLeft), p, 500)
	c.Tick(absent(), types.Mask(types.RelayLeft), p, 1100)
	if p.IsCoilLatched() {
		t.Fatal("coil fault tripped with no sense data")
	}
}
