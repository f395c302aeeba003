package types

import "math"

// ---- Relay outputs ----

// Relay indexes the physical relay outputs on the TLTB driver board.
type Relay uint8

const (
	RelayLeft Relay = iota
	RelayRight
	RelayBrake
	RelayTail
	RelayMarker
	RelayAux
	RelayEnable // master output-enable relay
	RelayCount
)

func (r Relay) String() string {
	switch r {
	case RelayLeft:
		return "left"
	case RelayRight:
		return "right"
	case RelayBrake:
		return "brake"
	case RelayTail:
		return "tail"
	case RelayMarker:
		return "marker"
	case RelayAux:
		return "aux"
	case RelayEnable:
		return "enable"
	default:
		return "?"
	}
}

// RelayMask is a desired or actual relay pattern, one bit per Relay index.
// The per-tick output pipeline composes masks (protection override, cooldown
// override, mode resolution) and writes hardware exactly once.
type RelayMask uint8

const MaskAllOff RelayMask = 0

func Mask(relays ...Relay) RelayMask {
	var m RelayMask
	for _, r := range relays {
		m |= 1 << r
	}
	return m
}

func (m RelayMask) Has(r Relay) bool        { return m&(1<<r) != 0 }
func (m RelayMask) With(r Relay) RelayMask  { return m | 1<<r }
func (m RelayMask) Without(r Relay) RelayMask {
	return m &^ (1 << r)
}

// Count returns the number of energized outputs.
func (m RelayMask) Count() int {
	n := 0
	for i := Relay(0); i < RelayCount; i++ {
		if m.Has(i) {
			n++
		}
	}
	return n
}

// Sole returns the single energized load output, or -1 when zero or more
// than one is on. RelayEnable is excluded: it carries no trailer load.
func (m RelayMask) Sole() int8 {
	idx := int8(-1)
	for i := Relay(0); i < RelayEnable; i++ {
		if m.Has(i) {
			if idx >= 0 {
				return -1
			}
			idx = int8(i)
		}
	}
	return idx
}

// ---- Rotary selector ----

// RotaryMode is the decoded position of the 8-way selector switch.
type RotaryMode uint8

const (
	ModeAllOff   RotaryMode = iota // P1
	ModeRFEnable                   // P2
	ModeLeft                       // P3
	ModeRight                      // P4
	ModeBrake                      // P5
	ModeTail                       // P6
	ModeMarker                     // P7
	ModeAux                        // P8
	ModeInvalid                    // between detents / multiple contacts
)

func (m RotaryMode) String() string {
	switch m {
	case ModeAllOff:
		return "off"
	case ModeRFEnable:
		return "rf"
	case ModeLeft:
		return "left"
	case ModeRight:
		return "right"
	case ModeBrake:
		return "brake"
	case ModeTail:
		return "tail"
	case ModeMarker:
		return "marker"
	case ModeAux:
		return "aux"
	default:
		return "invalid"
	}
}

// UIMode selects the brake-lamp wiring convention.
type UIMode uint8

const (
	UIModeStandard UIMode = iota // dedicated brake circuit
	UIModeRV                     // brake drives LEFT+RIGHT combined lamps
)

// ---- Sensor readings ----

// Reading is one sensor sample; Valid is false when the sensor is absent or
// the bus transaction failed. An invalid reading is never evidence of fault
// or of health.
type Reading struct {
	Value float32
	Valid bool
}

// ReadingOf converts a driver float (NaN = absent) into a Reading.
func ReadingOf(v float32) Reading {
	if math.IsNaN(float64(v)) {
		return Reading{}
	}
	return Reading{Value: v, Valid: true}
}

// Float returns the value, or NaN when invalid (for telemetry export).
func (r Reading) Float() float32 {
	if !r.Valid {
		return float32(math.NaN())
	}
	return r.Value
}

// ---- Telemetry snapshot ----

// Snapshot is the per-tick telemetry value, recreated wholesale each tick
// and published retained. Floats are NaN when the sensor is absent.
type Snapshot struct {
	SrcV  float32 `json:"srcV"`
	LoadA float32 `json:"loadA"`
	OutV  float32 `json:"outV"`
	CoilA float32 `json:"coilA"`

	LvpLatched  bool `json:"lvpLatched"`
	OcpLatched  bool `json:"ocpLatched"`
	OutvLatched bool `json:"outvLatched"`
	CoilLatched bool `json:"coilLatched"`

	LvpBypass  bool `json:"lvpBypass"`
	OutvBypass bool `json:"outvBypass"`

	StartupGuard     bool   `json:"startupGuard"`
	CooldownActive   bool   `json:"cooldownActive"`
	CooldownSecsLeft uint16 `json:"cooldownSecsLeft"`

	Mode   RotaryMode `json:"mode"`
	Relays RelayMask  `json:"relays"`

	OcpTripRelay   int8 `json:"ocpTripRelay"`   // -1 = unknown
	CoilFaultRelay int8 `json:"coilFaultRelay"` // -1 = unknown

	TSms uint32 `json:"ts_ms"`
}

// AnyLatched reports whether any protection channel holds a latch.
func (s Snapshot) AnyLatched() bool {
	return s.LvpLatched || s.OcpLatched || s.OutvLatched || s.CoilLatched
}
