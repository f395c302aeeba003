// Package ina226 drives the TI INA226 bus-voltage/current monitor over I²C.
package ina226

import (
	"errors"

	"tinygo.org/x/drivers"

	"tltb-go/x/mathx"
)

var (
	ErrNotPresent = errors.New("ina226: no response at address")
	ErrBadID      = errors.New("ina226: unexpected manufacturer/die ID")
)

// Driver configuration. Integer-only so calibration stays deterministic.
type Config struct {
	Address       uint16
	ShuntMicroOhm uint32 // sense resistor in µΩ
	CurrentLSB_uA uint32 // current register LSB in µA
}

// DefaultConfig matches the board's 40 A / 75 mV shunt (1.875 mΩ) with a
// 1 mA/bit current LSB, which calibrates to 0x0AAB.
func DefaultConfig() Config {
	return Config{
		Address:       AddressDefault,
		ShuntMicroOhm: 1875,
		CurrentLSB_uA: 1000,
	}
}

// Validate the fields every conversion depends on.
func (c Config) Validate() error {
	if c.Address == 0 {
		return errors.New("Address must be non-zero (use AddressDefault)")
	}
	if c.ShuntMicroOhm == 0 {
		return errors.New("ShuntMicroOhm must be set")
	}
	if c.CurrentLSB_uA == 0 {
		return errors.New("CurrentLSB_uA must be set")
	}
	return nil
}

// Device represents one INA226 instance on an I²C bus.
type Device struct {
	i2c  drivers.I2C
	addr uint16

	currentLSB float32 // A/bit
	cal        uint16

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device without touching the bus.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{
		i2c:        i2c,
		addr:       addr,
		currentLSB: float32(cfg.CurrentLSB_uA) * 1e-6,
		cal:        calibration(cfg),
	}
}

// Datasheet: CAL = 0.00512 / (CurrentLSB * Rshunt), rounded to nearest.
func calibration(cfg Config) uint16 {
	prod := uint64(cfg.CurrentLSB_uA) * uint64(cfg.ShuntMicroOhm)
	if prod == 0 {
		return 0
	}
	return uint16(mathx.RoundDiv[uint64](5_120_000_000, prod))
}

// Probe checks the part answers and carries the expected IDs.
func (d *Device) Probe() error {
	id, err := d.readWord(regManufID)
	if err != nil {
		return ErrNotPresent
	}
	if id != manufIDTI {
		return ErrBadID
	}
	die, err := d.readWord(regDieID)
	if err != nil {
		return ErrNotPresent
	}
	if die&0xFFF0 != dieID226 {
		return ErrBadID
	}
	return nil
}

// Configure resets the part and programs continuous averaged conversion
// plus the calibration derived from the configured shunt.
func (d *Device) Configure() error {
	if err := d.writeWord(regConfig, cfgReset); err != nil {
		return err
	}
	if err := d.writeWord(regConfig, cfgDefault); err != nil {
		return err
	}
	return d.writeWord(regCalibration, d.cal)
}

// Calibration returns the value programmed into the calibration register.
func (d *Device) Calibration() uint16 { return d.cal }

// BusVoltage returns the bus rail voltage in volts.
func (d *Device) BusVoltage() (float32, error) {
	raw, err := d.readWord(regBusV)
	if err != nil {
		return 0, err
	}
	return float32(raw) * busVoltLSB, nil
}

// ShuntVoltage returns the signed shunt drop in volts.
func (d *Device) ShuntVoltage() (float32, error) {
	raw, err := d.readS16(regShuntV)
	if err != nil {
		return 0, err
	}
	return float32(raw) * shuntVoltLSB, nil
}

// Current returns the signed current in amps, per the programmed LSB.
func (d *Device) Current() (float32, error) {
	raw, err := d.readS16(regCurrent)
	if err != nil {
		return 0, err
	}
	return float32(raw) * d.currentLSB, nil
}

// Power returns the bus power in watts.
func (d *Device) Power() (float32, error) {
	raw, err := d.readWord(regPower)
	if err != nil {
		return 0, err
	}
	return float32(raw) * d.currentLSB * powerLSBMult, nil
}

// I2C 16-bit word operations (big-endian: HIGH then LOW).

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) readS16(reg byte) (int16, error) {
	u, err := d.readWord(reg)
	return int16(u), err
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}
