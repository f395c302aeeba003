package ina226

import (
	"errors"
	"testing"
)

// fakeI2C emulates a single INA226 as a 16-bit register file.
type fakeI2C struct {
	addr   uint16
	regs   map[byte]uint16
	writes []struct {
		reg byte
		val uint16
	}
	absent bool
}

func newFake(addr uint16) *fakeI2C {
	return &fakeI2C{
		addr: addr,
		regs: map[byte]uint16{
			regManufID: manufIDTI,
			regDieID:   dieID226,
		},
	}
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if f.absent || addr != f.addr {
		return errors.New("i2c: NACK")
	}
	if len(w) == 0 {
		return errors.New("i2c: empty write")
	}
	reg := w[0]
	if len(w) == 3 { // register write
		val := uint16(w[1])<<8 | uint16(w[2])
		f.regs[reg] = val
		f.writes = append(f.writes, struct {
			reg byte
			val uint16
		}{reg, val})
		return nil
	}
	if len(r) == 2 { // register read
		v := f.regs[reg]
		r[0] = byte(v >> 8)
		r[1] = byte(v)
		return nil
	}
	return errors.New("i2c: unexpected transfer shape")
}

func TestCalibrationValue(t *testing.T) {
	d := New(newFake(AddressDefault), DefaultConfig())
	// 0.00512 / (1 mA * 1.875 mΩ) rounds to 0x0AAB.
	if d.Calibration() != 0x0AAB {
		t.Fatalf("calibration = %#04x, want 0x0aab", d.Calibration())
	}
}

func TestConfigureWriteSequence(t *testing.T) {
	f := newFake(AddressDefault)
	d := New(f, DefaultConfig())
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	want := []struct {
		reg byte
		val uint16
	}{
		{regConfig, cfgReset},
		{regConfig, cfgDefault},
		{regCalibration, 0x0AAB},
	}
	if len(f.writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(f.writes), len(want))
	}
	for i, w := range want {
		if f.writes[i] != w {
			t.Errorf("write[%d] = {%#02x %#04x}, want {%#02x %#04x}",
				i, f.writes[i].reg, f.writes[i].val, w.reg, w.val)
		}
	}
}

func TestBusVoltageConversion(t *testing.T) {
	f := newFake(AddressDefault)
	f.regs[regBusV] = 10000 // 10000 * 1.25 mV = 12.5 V
	d := New(f, DefaultConfig())

	v, err := d.BusVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if v < 12.49 || v > 12.51 {
		t.Fatalf("bus voltage = %v, want 12.5", v)
	}
}

func TestCurrentSignedConversion(t *testing.T) {
	f := newFake(AddressDefault)
	d := New(f, DefaultConfig())

	f.regs[regCurrent] = 21500 // 21.5 A forward
	a, err := d.Current()
	if err != nil {
		t.Fatal(err)
	}
	if a < 21.49 || a > 21.51 {
		t.Fatalf("current = %v, want 21.5", a)
	}

	neg := int16(-3200) // reverse flow
	f.regs[regCurrent] = uint16(neg)
	a, err = d.Current()
	if err != nil {
		t.Fatal(err)
	}
	if a < -3.21 || a > -3.19 {
		t.Fatalf("current = %v, want -3.2", a)
	}
}

func TestProbe(t *testing.T) {
	f := newFake(AddressDefault)
	d := New(f, DefaultConfig())
	if err := d.Probe(); err != nil {
		t.Fatalf("probe on healthy part: %v", err)
	}

	f.regs[regManufID] = 0x1234
	if err := d.Probe(); !errors.Is(err, ErrBadID) {
		t.Fatalf("probe with wrong ID = %v, want ErrBadID", err)
	}

	f.absent = true
	if err := d.Probe(); !errors.Is(err, ErrNotPresent) {
		t.Fatalf("probe with absent part = %v, want ErrNotPresent", err)
	}
}
