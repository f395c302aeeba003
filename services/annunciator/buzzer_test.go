package annunciator

import (
	"math"
	"testing"

	"tltb-go/types"
)

func TestFaultPattern(t *testing.T) {
	var b Buzzer

	// First fault tick sounds immediately.
	if !b.Tick(true, 1000) {
		t.Fatal("silent at fault onset")
	}
	// Still on through the 200ms segment.
	if !b.Tick(true, 1150) {
		t.Fatal("dropped out mid on-segment")
	}
	// Off for the 800ms rest.
	if b.Tick(true, 1200) {
		t.Fatal("still on after on-segment")
	}
	if b.Tick(true, 1900) {
		t.Fatal("on during rest segment")
	}
	// Next cycle.
	if !b.Tick(true, 2000) {
		t.Fatal("next cycle did not start")
	}

	// Fault gone: silent at once, mid-segment or not.
	if b.Tick(false, 2050) {
		t.Fatal("still sounding after fault cleared")
	}
}

func TestOneShotBeep(t *testing.T) {
	var b Buzzer

	b.Beep(60, 1000)
	if !b.Tick(false, 1010) {
		t.Fatal("beep not sounding")
	}
	if b.Tick(false, 1060) {
		t.Fatal("beep overran its length")
	}
}

func TestFaultOutranksBeep(t *testing.T) {
	var b Buzzer

	b.Tick(true, 1000)
	// A chirp request during the alarm is dropped, and must not
	// disturb the pattern.
	b.Beep(60, 1100)
	if b.Tick(true, 1250) {
		t.Fatal("pattern off-segment disturbed by beep request")
	}
}

func TestAlarmConditions(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		name string
		snap types.Snapshot
		want bool
	}{
		{"quiet", types.Snapshot{}, false},
		{"ocp", types.Snapshot{OcpLatched: true}, true},
		{"coil", types.Snapshot{CoilLatched: true}, true},
		{"lvp", types.Snapshot{LvpLatched: true}, true},
		{"lvp bypassed", types.Snapshot{LvpLatched: true, LvpBypass: true}, false},
		{"outv bypassed", types.Snapshot{OutvLatched: true, OutvBypass: true}, false},
		{"off current", types.Snapshot{Relays: 0, LoadA: 2.5}, true},
		{"off current negative", types.Snapshot{Relays: 0, LoadA: -2.5}, true},
		{"off current absent sensor", types.Snapshot{Relays: 0, LoadA: nan}, false},
		{"current with relay on", types.Snapshot{Relays: types.Mask(types.RelayTail), LoadA: 2.5}, false},
	}
	for _, c := range cases {
		if got := alarm(c.snap); got != c.want {
			t.Errorf("%s: alarm = %v, want %v", c.name, got, c.want)
		}
	}
}
