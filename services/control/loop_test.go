package control

import (
	"testing"

	"tltb-go/hal"
	"tltb-go/types"
)

// healthyBoard returns a sim board with sane electricals, selector at
// OFF, and coil current tracking the commanded relay count.
func healthyBoard() *hal.SimBoard {
	b := hal.NewSim()
	b.SetSourceVoltage(13.8)
	b.SetLoadCurrent(2)
	b.SetOutputVoltage(12.5)
	b.CoupleCoil(0.08)
	b.SetRotaryMode(types.ModeAllOff)
	return b
}

func testConfig() LoopConfig {
	cfg := DefaultLoopConfig()
	cfg.Protection.LvpCutoffV = 12.5 // below the bench supply
	return cfg
}

// advance ticks the loop from *now for durMs in stepMs increments and
// returns the last snapshot.
func advance(l *Loop, now *uint32, durMs, stepMs uint32) types.Snapshot {
	var snap types.Snapshot
	end := *now + durMs
	for *now < end {
		*now += stepMs
		snap = l.Tick(*now)
	}
	return snap
}

func TestStartupGuardBlocksUntilOff(t *testing.T) {
	b := healthyBoard()
	b.SetRotaryMode(types.ModeLeft) // powered up mid-rotation
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	snap := advance(l, &now, 500, 5)
	if !snap.StartupGuard {
		t.Fatal("guard dropped without the selector at OFF")
	}
	if snap.Relays != types.MaskAllOff {
		t.Fatalf("relays = %#02x under startup guard", snap.Relays)
	}

	// Raw OFF clears the guard on the next evaluation, no dwell needed.
	b.SetRotaryMode(types.ModeAllOff)
	snap = advance(l, &now, 10, 5)
	if snap.StartupGuard {
		t.Fatal("guard still active after OFF")
	}

	b.SetRotaryMode(types.ModeLeft)
	snap = advance(l, &now, 100, 5)
	if snap.Relays != types.Mask(types.RelayLeft, types.RelayEnable) {
		t.Fatalf("relays = %#02x, want left+enable", snap.Relays)
	}
}

func TestModeResolution(t *testing.T) {
	cases := []struct {
		mode types.RotaryMode
		ui   types.UIMode
		want types.RelayMask
	}{
		{types.ModeAllOff, types.UIModeStandard, types.MaskAllOff},
		{types.ModeLeft, types.UIModeStandard, types.Mask(types.RelayLeft, types.RelayEnable)},
		{types.ModeRight, types.UIModeStandard, types.Mask(types.RelayRight, types.RelayEnable)},
		{types.ModeBrake, types.UIModeStandard, types.Mask(types.RelayBrake, types.RelayEnable)},
		{types.ModeBrake, types.UIModeRV, types.Mask(types.RelayLeft, types.RelayRight, types.RelayEnable)},
		{types.ModeTail, types.UIModeStandard, types.Mask(types.RelayTail, types.RelayEnable)},
		{types.ModeMarker, types.UIModeStandard, types.Mask(types.RelayMarker, types.RelayEnable)},
		{types.ModeAux, types.UIModeStandard, types.Mask(types.RelayAux, types.RelayEnable)},
		{types.ModeRFEnable, types.UIModeStandard, types.Mask(types.RelayEnable)},
	}
	for _, c := range cases {
		b := healthyBoard()
		cfg := testConfig()
		cfg.UIMode = c.ui
		l := NewLoop(b, cfg)

		now := uint32(1000)
		advance(l, &now, 20, 5) // drop the guard at OFF
		b.SetRotaryMode(c.mode)
		snap := advance(l, &now, 100, 5)
		if snap.Relays != c.want {
			t.Errorf("%v (ui %d): relays = %#02x, want %#02x", c.mode, c.ui, snap.Relays, c.want)
		}
	}
}

func TestInvalidSelectorEnergizesNothing(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.SetRotaryRaw(0x00) // open circuit, e.g. unplugged switch
	snap := advance(l, &now, 200, 5)
	if snap.Relays != types.MaskAllOff {
		t.Fatalf("relays = %#02x on invalid selector", snap.Relays)
	}
}

func TestProtectorWinsOverMode(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.SetRotaryMode(types.ModeTail)
	snap := advance(l, &now, 100, 5)
	if !snap.Relays.Has(types.RelayTail) {
		t.Fatal("tail not energized before fault")
	}

	// Sag the supply: LVP latches and every output drops, selector
	// position notwithstanding.
	b.SetSourceVoltage(11.0)
	snap = advance(l, &now, 300, 5)
	if !snap.LvpLatched {
		t.Fatal("LVP did not latch")
	}
	if snap.Relays != types.MaskAllOff {
		t.Fatalf("relays = %#02x while latched", snap.Relays)
	}
	if l.Pending() != types.FaultLVP {
		t.Fatalf("pending = %v, want lvp", l.Pending())
	}

	// Recovery above the hysteresis band self-heals the latch and
	// releases the pending state without any operator gesture.
	b.SetSourceVoltage(13.8)
	snap = advance(l, &now, 1000, 5)
	if snap.LvpLatched || l.Pending() != types.FaultNone {
		t.Fatal("LVP did not auto-clear")
	}
	if snap.Relays != types.Mask(types.RelayTail, types.RelayEnable) {
		t.Fatalf("relays = %#02x after recovery", snap.Relays)
	}
}

func TestShortCircuitTripAndConfirmedClear(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.SetRotaryMode(types.ModeLeft)
	advance(l, &now, 600, 5) // stable, past the mode-change OCP mask

	// Dead short: one tick above twice the limit latches immediately
	// and pins the trip on the only load relay that was on.
	b.SetLoadCurrent(45)
	snap := advance(l, &now, 5, 5)
	if !snap.OcpLatched {
		t.Fatal("instant tier did not latch in one tick")
	}
	if snap.OcpTripRelay != int8(types.RelayLeft) {
		t.Fatalf("trip relay = %d, want left", snap.OcpTripRelay)
	}
	if snap.Relays != types.MaskAllOff {
		t.Fatalf("relays = %#02x after trip", snap.Relays)
	}

	// Removing the short changes nothing: OCP never self-clears.
	b.SetLoadCurrent(2)
	snap = advance(l, &now, 500, 5)
	if !snap.OcpLatched {
		t.Fatal("OCP cleared without the gesture")
	}

	// Rotate to OFF. A short dab is not enough.
	b.SetRotaryMode(types.ModeAllOff)
	snap = advance(l, &now, 200, 5)
	if !snap.OcpLatched {
		t.Fatal("latch cleared before the confirmation window")
	}
	snap = advance(l, &now, 200, 5)
	if snap.OcpLatched || l.Pending() != types.FaultNone {
		t.Fatal("confirmed OFF did not clear the latch")
	}

	// Box is usable again.
	b.SetRotaryMode(types.ModeRight)
	snap = advance(l, &now, 100, 5)
	if snap.Relays != types.Mask(types.RelayRight, types.RelayEnable) {
		t.Fatalf("relays = %#02x after recovery", snap.Relays)
	}
}

func TestModeChangeSuppressesOcp(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.SetRotaryMode(types.ModeLeft)
	advance(l, &now, 600, 5)

	// Switch position, let the relays actually change over, then ride a
	// 30 A inrush for 300 ms, inside the 400 ms suppression window.
	b.SetRotaryMode(types.ModeRight)
	advance(l, &now, 40, 5)
	b.SetLoadCurrent(30)
	snap := advance(l, &now, 300, 5)
	if snap.OcpLatched {
		t.Fatal("inrush transient tripped OCP during suppression")
	}
	b.SetLoadCurrent(2)
	snap = advance(l, &now, 300, 5)
	if snap.OcpLatched {
		t.Fatal("latched after transient ended")
	}

	// The same overload without a mode change latches after the
	// debounce window.
	b.SetLoadCurrent(30)
	snap = advance(l, &now, 50, 5)
	if !snap.OcpLatched {
		t.Fatal("sustained overload did not latch")
	}
}

func TestCooldownHoldsEnableOnly(t *testing.T) {
	b := healthyBoard()
	cfg := testConfig()
	cfg.Protection.OcpLimitA = 25 // keep OCP out of this scenario
	l := NewLoop(b, cfg)

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.SetRotaryMode(types.ModeTail)
	advance(l, &now, 1000, 5)

	b.SetLoadCurrent(22)
	snap := advance(l, &now, 119_000, 500)
	if snap.CooldownActive {
		t.Fatal("cooldown engaged before the sustain limit")
	}
	snap = advance(l, &now, 2000, 500)
	if !snap.CooldownActive {
		t.Fatal("cooldown did not engage")
	}
	if snap.CooldownSecsLeft == 0 || snap.CooldownSecsLeft > 120 {
		t.Fatalf("countdown = %d", snap.CooldownSecsLeft)
	}
	// Only the master enable drops; the mode's load relay stays
	// commanded and no latch is involved.
	if snap.Relays != types.Mask(types.RelayTail) {
		t.Fatalf("relays = %#02x during cooldown", snap.Relays)
	}
	if snap.AnyLatched() {
		t.Fatal("cooldown set a protection latch")
	}

	b.SetLoadCurrent(2)
	snap = advance(l, &now, 121_000, 500)
	if snap.CooldownActive {
		t.Fatal("cooldown still active after the rest window")
	}
	if snap.Relays != types.Mask(types.RelayTail, types.RelayEnable) {
		t.Fatalf("relays = %#02x after cooldown", snap.Relays)
	}
}

func TestRFModeDefersToRemote(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.SetRotaryMode(types.ModeRFEnable)
	snap := advance(l, &now, 100, 5)
	if snap.Relays != types.Mask(types.RelayEnable) {
		t.Fatalf("relays = %#02x entering RF mode, want enable only", snap.Relays)
	}

	l.RFKey(types.RelayLeft, true)
	snap = advance(l, &now, 20, 5)
	if snap.Relays != types.Mask(types.RelayLeft, types.RelayEnable) {
		t.Fatalf("relays = %#02x after RF key, want left+enable", snap.Relays)
	}
	l.RFKey(types.RelayLeft, false)
	snap = advance(l, &now, 20, 5)
	if snap.Relays != types.Mask(types.RelayEnable) {
		t.Fatalf("relays = %#02x after key release", snap.Relays)
	}

	// The enable relay is not a valid RF target.
	l.RFKey(types.RelayEnable, true)
	snap = advance(l, &now, 20, 5)
	if snap.Relays != types.Mask(types.RelayEnable) {
		t.Fatalf("relays = %#02x, enable key must be ignored", snap.Relays)
	}

	// Leaving RF mode discards the remote state; re-entering starts
	// clean.
	l.RFKey(types.RelayLeft, true)
	advance(l, &now, 20, 5)
	b.SetRotaryMode(types.ModeTail)
	advance(l, &now, 100, 5)
	b.SetRotaryMode(types.ModeRFEnable)
	snap = advance(l, &now, 100, 5)
	if snap.Relays != types.Mask(types.RelayEnable) {
		t.Fatalf("relays = %#02x, RF state leaked across mode change", snap.Relays)
	}
}

func TestOneRelayWritePerTick(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	ticks := 0
	for i := 0; i < 200; i++ {
		now += 5
		l.Tick(now)
		ticks++
	}
	if got := b.RelayWrites(); got != ticks {
		t.Fatalf("%d relay writes over %d ticks", got, ticks)
	}
}

func TestFaultEventsOnTransitions(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	l.Events() // drop anything from bring-up

	b.SetSourceVoltage(11.0)
	advance(l, &now, 300, 5)
	ev := l.Events()
	if len(ev) != 1 || ev[0].Kind != types.FaultLVP || !ev[0].Latched {
		t.Fatalf("events after trip = %+v", ev)
	}

	b.SetSourceVoltage(13.8)
	advance(l, &now, 1000, 5)
	ev = l.Events()
	if len(ev) != 1 || ev[0].Kind != types.FaultLVP || ev[0].Latched {
		t.Fatalf("events after heal = %+v", ev)
	}
	if got := l.Events(); len(got) != 0 {
		t.Fatalf("events not drained: %+v", got)
	}
}

func TestSnapshotReportsAbsentSensors(t *testing.T) {
	b := healthyBoard()
	l := NewLoop(b, testConfig())

	now := uint32(1000)
	advance(l, &now, 20, 5)
	b.RemoveSensor()
	snap := advance(l, &now, 100, 5)

	if snap.SrcV == snap.SrcV { // NaN compares unequal to itself
		t.Fatalf("srcV = %v, want NaN", snap.SrcV)
	}
	if snap.AnyLatched() {
		t.Fatal("sensor loss produced a latch")
	}
}
