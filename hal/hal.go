// Package hal abstracts the lighting box hardware behind a surface small
// enough that the control loop runs identically on the bench board, in
// host tests and in the simulator.
package hal

import "tltb-go/types"

// Board is the full hardware surface of the test box.
//
// Sensor reads return NaN when the backing sensor is absent or
// unreadable; callers convert to types.Reading at this boundary and
// nothing above it handles raw NaN.
type Board interface {
	ReadSourceVoltage() float32
	ReadLoadCurrent() float32
	ReadOutputVoltage() float32
	ReadCoilCurrent() float32

	// SetRelays applies the whole mask in one pass so a tick never
	// leaves the outputs half-written.
	SetRelays(mask types.RelayMask)
	Relays() types.RelayMask

	// SampleRotary returns the raw selector bits, one bit per detent,
	// bit set meaning that position's contact is closed. A healthy
	// switch yields a one-hot value; anything else is for the resolver
	// to reject.
	SampleRotary() uint8

	SetBuzzer(on bool)
}
