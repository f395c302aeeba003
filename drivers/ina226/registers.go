package ina226

// Register map. All registers are 16-bit, big-endian on the wire.
const (
	regConfig      = 0x00
	regShuntV      = 0x01
	regBusV        = 0x02
	regPower       = 0x03
	regCurrent     = 0x04
	regCalibration = 0x05
	regMaskEnable  = 0x06
	regAlertLimit  = 0x07
	regManufID     = 0xFE
	regDieID       = 0xFF
)

const (
	// AddressDefault is the all-low A0/A1 strap address.
	AddressDefault uint16 = 0x40

	busVoltLSB   = 1.25e-3 // V/bit, fixed by the part
	shuntVoltLSB = 2.5e-6  // V/bit, fixed by the part
	powerLSBMult = 25      // power LSB = 25 x current LSB

	cfgReset uint16 = 0x8000
	// AVG=16, 1.1 ms conversion on both channels, continuous shunt+bus.
	// One averaged result roughly every 35 ms per channel.
	cfgDefault uint16 = (0b010 << 9) | (0b100 << 6) | (0b100 << 3) | 0b111

	manufIDTI uint16 = 0x5449 // "TI"
	dieID226  uint16 = 0x2260
)
