//go:build tinygo

package hal

import (
	"machine"
	"math"
	"time"

	"tltb-go/drivers/ina226"
	"tltb-go/types"
)

// Dev board rev C pin map.
var relayPins = [types.RelayCount]machine.Pin{14, 13, 12, 11, 10, 9, 3}

// Rotary detent contacts P1..P8, active-low with internal pullups.
var rotaryPins = [8]machine.Pin{5, 6, 7, 15, 16, 17, 18, 8}

const (
	pinBuzzer = machine.Pin(4)
	pinSDA    = machine.Pin(48)
	pinSCL    = machine.Pin(47)
)

// INA226 strap addresses on the shared sense bus.
const (
	addrLoad   = 0x40
	addrSource = 0x41
	addrCoil   = 0x44
)

// DeviceBoard drives the real hardware. A missing monitor is tolerated:
// its reads report NaN and the protection layer treats the channel as
// absent rather than faulted.
type DeviceBoard struct {
	load   *ina226.Device
	source *ina226.Device
	coil   *ina226.Device

	loadOK   bool
	sourceOK bool
	coilOK   bool

	relays types.RelayMask
	buzzer bool
}

// NewBoard configures pins and probes the current monitors. It never
// fails outright; the box must still run its relays with every sensor
// board unplugged.
func NewBoard() *DeviceBoard {
	for _, p := range relayPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}
	for _, p := range rotaryPins {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	pinBuzzer.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinBuzzer.Low()

	machine.I2C0.Configure(machine.I2CConfig{
		SDA:       pinSDA,
		SCL:       pinSCL,
		Frequency: 400_000,
	})

	b := &DeviceBoard{}
	b.load, b.loadOK = bringUp(ina226.Config{
		Address:       addrLoad,
		ShuntMicroOhm: 1875, // 40 A / 75 mV shunt
		CurrentLSB_uA: 1000,
	})
	b.source, b.sourceOK = bringUp(ina226.Config{
		Address:       addrSource,
		ShuntMicroOhm: 1875,
		CurrentLSB_uA: 1000,
	})
	b.coil, b.coilOK = bringUp(ina226.Config{
		Address:       addrCoil,
		ShuntMicroOhm: 50_000, // coil rail senses tens of mA
		CurrentLSB_uA: 100,
	})
	return b
}

func bringUp(cfg ina226.Config) (*ina226.Device, bool) {
	d := ina226.New(machine.I2C0, cfg)
	if err := d.Probe(); err != nil {
		return d, false
	}
	if err := d.Configure(); err != nil {
		return d, false
	}
	time.Sleep(2 * time.Millisecond)
	return d, true
}

func nan32() float32 { return float32(math.NaN()) }

func (b *DeviceBoard) ReadSourceVoltage() float32 {
	if !b.sourceOK {
		return nan32()
	}
	v, err := b.source.BusVoltage()
	if err != nil {
		return nan32()
	}
	return v
}

func (b *DeviceBoard) ReadLoadCurrent() float32 {
	if !b.loadOK {
		return nan32()
	}
	a, err := b.load.Current()
	if err != nil {
		return nan32()
	}
	return a
}

func (b *DeviceBoard) ReadOutputVoltage() float32 {
	if !b.loadOK {
		return nan32()
	}
	v, err := b.load.BusVoltage()
	if err != nil {
		return nan32()
	}
	return v
}

func (b *DeviceBoard) ReadCoilCurrent() float32 {
	if !b.coilOK {
		return nan32()
	}
	a, err := b.coil.Current()
	if err != nil {
		return nan32()
	}
	return a
}

func (b *DeviceBoard) SetRelays(mask types.RelayMask) {
	for i, p := range relayPins {
		p.Set(mask.Has(types.Relay(i)))
	}
	b.relays = mask
}

func (b *DeviceBoard) Relays() types.RelayMask { return b.relays }

func (b *DeviceBoard) SampleRotary() uint8 {
	var raw uint8
	for i, p := range rotaryPins {
		if !p.Get() { // closed contact pulls the line low
			raw |= 1 << i
		}
	}
	return raw
}

func (b *DeviceBoard) SetBuzzer(on bool) {
	pinBuzzer.Set(on)
	b.buzzer = on
}
