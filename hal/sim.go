package hal

import (
	"math"
	"sync"

	"tltb-go/types"
)

// SimBoard implements Board in memory for host tests and the simulator.
// All sensors start absent (NaN) and the rotary starts open; tests drive
// exactly the channels they care about.
type SimBoard struct {
	mu sync.Mutex

	srcV  float32
	loadA float32
	outV  float32
	coilA float32

	// When coupled, coil current is derived from the commanded relay
	// count instead of the explicit coilA value.
	coilCoupled bool
	coilPerA    float32

	rotary uint8
	relays types.RelayMask
	buzzer bool

	relayWrites int
}

// NewSim returns a board with every sensor absent and all outputs off.
func NewSim() *SimBoard {
	n := float32(math.NaN())
	return &SimBoard{srcV: n, loadA: n, outV: n, coilA: n}
}

func (b *SimBoard) SetSourceVoltage(v float32) { b.mu.Lock(); b.srcV = v; b.mu.Unlock() }
func (b *SimBoard) SetLoadCurrent(a float32)   { b.mu.Lock(); b.loadA = a; b.mu.Unlock() }
func (b *SimBoard) SetOutputVoltage(v float32) { b.mu.Lock(); b.outV = v; b.mu.Unlock() }

// SetCoilCurrent pins the coil sense to an explicit value and disables
// any relay coupling previously configured.
func (b *SimBoard) SetCoilCurrent(a float32) {
	b.mu.Lock()
	b.coilA = a
	b.coilCoupled = false
	b.mu.Unlock()
}

// CoupleCoil derives the coil sense from the written relay mask at the
// given per-coil draw, emulating a healthy driver board.
func (b *SimBoard) CoupleCoil(perRelayA float32) {
	b.mu.Lock()
	b.coilCoupled = true
	b.coilPerA = perRelayA
	b.mu.Unlock()
}

// RemoveSensor marks every analog channel absent.
func (b *SimBoard) RemoveSensor() {
	n := float32(math.NaN())
	b.mu.Lock()
	b.srcV, b.loadA, b.outV, b.coilA = n, n, n, n
	b.coilCoupled = false
	b.mu.Unlock()
}

// SetRotaryRaw sets the selector contacts directly, including illegal
// multi-closed and all-open patterns.
func (b *SimBoard) SetRotaryRaw(raw uint8) { b.mu.Lock(); b.rotary = raw; b.mu.Unlock() }

// SetRotaryMode closes exactly the contact for the given detent.
func (b *SimBoard) SetRotaryMode(m types.RotaryMode) {
	b.mu.Lock()
	if int(m) < 8 {
		b.rotary = 1 << uint(m)
	} else {
		b.rotary = 0
	}
	b.mu.Unlock()
}

func (b *SimBoard) ReadSourceVoltage() float32 { b.mu.Lock(); defer b.mu.Unlock(); return b.srcV }
func (b *SimBoard) ReadLoadCurrent() float32   { b.mu.Lock(); defer b.mu.Unlock(); return b.loadA }
func (b *SimBoard) ReadOutputVoltage() float32 { b.mu.Lock(); defer b.mu.Unlock(); return b.outV }

func (b *SimBoard) ReadCoilCurrent() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.coilCoupled {
		return float32(b.relays.Count()) * b.coilPerA
	}
	return b.coilA
}

func (b *SimBoard) SetRelays(mask types.RelayMask) {
	b.mu.Lock()
	b.relays = mask
	b.relayWrites++
	b.mu.Unlock()
}

func (b *SimBoard) Relays() types.RelayMask {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relays
}

// RelayWrites counts SetRelays calls, for asserting the one-write-per-
// tick contract.
func (b *SimBoard) RelayWrites() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relayWrites
}

func (b *SimBoard) SampleRotary() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rotary
}

func (b *SimBoard) SetBuzzer(on bool) { b.mu.Lock(); b.buzzer = on; b.mu.Unlock() }

// Buzzer reports the last buzzer drive level.
func (b *SimBoard) Buzzer() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buzzer
}
