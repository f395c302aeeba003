package types

// Control payloads carried on tltb/control/<verb> topics. The control loop
// services these synchronously between ticks; replies use OKReply/ErrorReply.

type SetLvpCutoff struct {
	Volts float32 `json:"volts"`
}

type SetOcpLimit struct {
	Amps float32 `json:"amps"`
}

type SetOutvCutoff struct {
	Volts float32 `json:"volts"`
}

type SetBypass struct {
	Channel string `json:"channel"` // "lvp" | "outv"
	On      bool   `json:"on"`
}

type SetUIMode struct {
	Mode UIMode `json:"mode"`
}

// RFKey is an RF remote key event produced by the receiver glue. The loop
// honors it only while the selector sits in the RF position.
type RFKey struct {
	Relay Relay `json:"relay"`
	On    bool  `json:"on"`
	TSms  uint32
}

// Generic replies
type OKReply struct {
	OK bool `json:"ok"`
}
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Fault events ----

// FaultKind names a protection channel for events and the pending-ack flow.
type FaultKind uint8

const (
	FaultNone FaultKind = iota
	FaultOCP
	FaultCoil
	FaultLVP
	FaultOUTV
)

func (k FaultKind) String() string {
	switch k {
	case FaultOCP:
		return "ocp"
	case FaultCoil:
		return "coil"
	case FaultLVP:
		return "lvp"
	case FaultOUTV:
		return "outv"
	default:
		return "none"
	}
}

// FaultEvent is published (non-retained) when a latch sets or clears.
type FaultEvent struct {
	Kind    FaultKind `json:"kind"`
	Latched bool      `json:"latched"`
	Relay   int8      `json:"relay"` // trip attribution, -1 unknown
	TSms    uint32    `json:"ts_ms"`
}
